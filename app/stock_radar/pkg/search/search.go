// Package search 定义与搜索服务商无关的网页/新闻检索接口。
package search

import (
	"context"
	"errors"
)

// Topic 搜索类别
const (
	TopicGeneral = "general"
	TopicNews    = "news"
)

// DefaultMaxResults 未指定条数时的默认值
const DefaultMaxResults = 5

// ErrEmptyQuery 查询词为空
var ErrEmptyQuery = errors.New("search query is empty")

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query             string
	Topic             string // "news" or "general"
	MaxResults        int
	IncludeRawContent bool
}

// Normalize 校验请求并填充默认值
func (r *Request) Normalize() error {
	if r.Query == "" {
		return ErrEmptyQuery
	}
	if r.Topic != TopicNews {
		r.Topic = TopicGeneral
	}
	if r.MaxResults <= 0 {
		r.MaxResults = DefaultMaxResults
	}
	return nil
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	RawContent    string
	Score         float64
	PublishedDate string
}
