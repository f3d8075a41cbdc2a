// Package serper 对接 Serper (google.serper.dev) 的 Google 搜索接口。
package serper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
	"resty.dev/v3"
)

const defaultBaseURL = "https://google.serper.dev"

// Client Serper API 客户端
type Client struct {
	http *resty.Client
}

// NewClient 创建客户端，baseURL 为空时使用官方地址
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("X-API-KEY", apiKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second),
	}
}

var _ search.Searcher = (*Client)(nil)

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
}

type searchResponse struct {
	AnswerBox *struct {
		Title   string `json:"title"`
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"answerBox"`
	Organic []item `json:"organic"`
	News    []item `json:"news"`
}

type item struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Date     string `json:"date"`
	Source   string `json:"source"`
	Position int    `json:"position"`
}

// Search 网页搜索走 /search，新闻走 /news
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	path := "/search"
	if req.Topic == search.TopicNews {
		path = "/news"
	}

	var result searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(searchRequest{Q: req.Query, Num: req.MaxResults}).
		SetResult(&result).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("serper api error (status %d): %s", resp.StatusCode(), resp.String())
	}

	items := result.Organic
	if req.Topic == search.TopicNews {
		items = result.News
	}

	var results []search.Result
	if ab := result.AnswerBox; ab != nil && req.Topic != search.TopicNews {
		content := ab.Answer
		if content == "" {
			content = ab.Snippet
		}
		if content != "" {
			results = append(results, search.Result{Title: ab.Title, URL: ab.Link, Content: content, Score: 1})
		}
	}
	for _, it := range items {
		if len(results) >= req.MaxResults {
			break
		}
		content := it.Snippet
		if it.Source != "" {
			content = it.Source + ": " + content
		}
		results = append(results, search.Result{
			Title:         it.Title,
			URL:           it.Link,
			Content:       content,
			Score:         positionScore(it.Position),
			PublishedDate: it.Date,
		})
	}

	return &search.Response{Results: results}, nil
}

// positionScore Serper 不返回相关度，按排名换算一个 (0, 1] 的分数
func positionScore(pos int) float64 {
	if pos <= 0 {
		return 0
	}
	return 1 / float64(pos)
}
