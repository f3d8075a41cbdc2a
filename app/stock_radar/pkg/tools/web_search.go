package tools

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
)

// WebSearchName 网页搜索工具名
const WebSearchName = "web_search"

const (
	// 摘要短于该长度时抓取正文
	minContentLen = 500
	maxContentLen = 3000
	fetchTimeout  = 30 * time.Second
)

// PageFetcher 抓取网页正文
type PageFetcher func(ctx context.Context, url string) (string, error)

// WebSearchTool 搜索网页或新闻，返回编号的 markdown 结果
type WebSearchTool struct {
	searcher   search.Searcher
	maxResults int
	fetch      PageFetcher
}

var _ tool.InvokableTool = (*WebSearchTool)(nil)

// WebSearchOption 配置项
type WebSearchOption func(*WebSearchTool)

// WithMaxResults 每次搜索返回的条数
func WithMaxResults(n int) WebSearchOption {
	return func(t *WebSearchTool) { t.maxResults = n }
}

// WithPageFetcher 替换正文抓取方式，传 nil 关闭抓取
func WithPageFetcher(f PageFetcher) WebSearchOption {
	return func(t *WebSearchTool) { t.fetch = f }
}

// NewWebSearchTool 创建搜索工具
func NewWebSearchTool(s search.Searcher, opts ...WebSearchOption) *WebSearchTool {
	t := &WebSearchTool{
		searcher:   s,
		maxResults: search.DefaultMaxResults,
		fetch:      fetchReadable,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Info 工具描述
func (t *WebSearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: WebSearchName,
		Desc: "Searches the internet for recent web pages or news about a query and returns titles, links and content.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The search query",
				Required: true,
			},
			"topic": {
				Type: schema.String,
				Desc: "general or news, defaults to general",
				Enum: []string{search.TopicGeneral, search.TopicNews},
			},
		}),
	}, nil
}

type webSearchArgs struct {
	Query string `json:"query"`
	Topic string `json:"topic"`
}

// InvokableRun 执行搜索，摘要过短时补充网页正文
func (t *WebSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args webSearchArgs
	if err := decodeArgs(argumentsInJSON, &args); err != nil {
		return "", err
	}

	logger.Log.Infof("搜索: %s (topic=%s)", args.Query, args.Topic)
	resp, err := t.searcher.Search(ctx, &search.Request{
		Query:      args.Query,
		Topic:      args.Topic,
		MaxResults: t.maxResults,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "No results found.", nil
	}

	var sb strings.Builder
	for i, item := range resp.Results {
		content := item.Content
		if len(content) < minContentLen && t.fetch != nil && item.URL != "" {
			fetched, err := t.fetch(ctx, item.URL)
			if err != nil {
				logger.Log.Debugf("抓取正文失败 [%s]: %v", item.URL, err)
			} else if len(fetched) > len(content) {
				content = fetched
			}
		}
		content = truncate(strings.TrimSpace(content), maxContentLen)

		fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, item.Title, item.URL)
		if item.PublishedDate != "" {
			fmt.Fprintf(&sb, "   Published: %s\n", item.PublishedDate)
		}
		fmt.Fprintf(&sb, "   %s\n\n", content)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func fetchReadable(ctx context.Context, url string) (string, error) {
	article, err := readability.FromURL(url, fetchTimeout)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}

// truncate 按字节截断，不切断 UTF-8 字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
