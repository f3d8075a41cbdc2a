package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/snapshot"
)

type fakeBuilder struct {
	ticker string
	err    error
}

func (f *fakeBuilder) Build(ctx context.Context, ticker string) (*snapshot.FinancialSnapshot, error) {
	f.ticker = ticker
	if f.err != nil {
		return nil, f.err
	}
	return &snapshot.FinancialSnapshot{
		AsOf:         "2026-10-18 10:00:00",
		CurrentPrice: snapshot.CurrentPrice{Price: "252.46", Time: "2026-10-17 15:59:00"},
		Annual:       snapshot.AnnualMetrics{GrossMargin: "40.00%"},
	}, nil
}

func TestStockAnalysisTool_Info(t *testing.T) {
	info, err := NewStockAnalysisTool(&fakeBuilder{}).Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StockAnalysisName, info.Name)
	assert.NotEmpty(t, info.Desc)
	require.NotNil(t, info.ParamsOneOf)
}

func TestStockAnalysisTool_Run(t *testing.T) {
	b := &fakeBuilder{}
	out, err := NewStockAnalysisTool(b).InvokableRun(context.Background(), `{"ticker": " aapl "}`)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", b.ticker)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "2026-10-18 10:00:00", decoded["as_of"])
	assert.Equal(t, "40.00%", decoded["annual"].(map[string]any)["gross_margin"])
}

func TestStockAnalysisTool_RepairsArguments(t *testing.T) {
	b := &fakeBuilder{}
	_, err := NewStockAnalysisTool(b).InvokableRun(context.Background(), `{"ticker": "MSFT"`)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", b.ticker)
}

func TestStockAnalysisTool_Errors(t *testing.T) {
	_, err := NewStockAnalysisTool(&fakeBuilder{}).InvokableRun(context.Background(), `{}`)
	assert.Error(t, err)

	boom := errors.New("provider down")
	_, err = NewStockAnalysisTool(&fakeBuilder{err: boom}).InvokableRun(context.Background(), `{"ticker":"AAPL"}`)
	assert.ErrorIs(t, err, boom)
}

type fakeSearcher struct {
	req  *search.Request
	resp *search.Response
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	f.req = req
	return f.resp, f.err
}

func TestWebSearchTool_Run(t *testing.T) {
	s := &fakeSearcher{resp: &search.Response{Results: []search.Result{
		{Title: "Short", URL: "https://a.example", Content: "tiny", PublishedDate: "2026-10-17"},
		{Title: "Long", URL: "https://b.example", Content: strings.Repeat("x", 600)},
	}}}
	var fetched []string
	tool := NewWebSearchTool(s, WithMaxResults(2), WithPageFetcher(func(ctx context.Context, url string) (string, error) {
		fetched = append(fetched, url)
		return "full article body", nil
	}))

	out, err := tool.InvokableRun(context.Background(), `{"query":"Apple competitors","topic":"news"}`)
	require.NoError(t, err)

	assert.Equal(t, "Apple competitors", s.req.Query)
	assert.Equal(t, "news", s.req.Topic)
	assert.Equal(t, 2, s.req.MaxResults)
	assert.Equal(t, []string{"https://a.example"}, fetched)
	assert.Contains(t, out, "1. [Short](https://a.example)")
	assert.Contains(t, out, "Published: 2026-10-17")
	assert.Contains(t, out, "full article body")
	assert.Contains(t, out, "2. [Long](https://b.example)")
}

func TestWebSearchTool_FetchFailureKeepsSnippet(t *testing.T) {
	s := &fakeSearcher{resp: &search.Response{Results: []search.Result{{Title: "T", URL: "https://a", Content: "snippet"}}}}
	tool := NewWebSearchTool(s, WithPageFetcher(func(ctx context.Context, url string) (string, error) {
		return "", errors.New("403")
	}))

	out, err := tool.InvokableRun(context.Background(), `{"query":"q"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "snippet")
}

func TestWebSearchTool_NoResults(t *testing.T) {
	tool := NewWebSearchTool(&fakeSearcher{resp: &search.Response{}}, WithPageFetcher(nil))
	out, err := tool.InvokableRun(context.Background(), `{"query":"q"}`)
	require.NoError(t, err)
	assert.Equal(t, "No results found.", out)
}

func TestWebSearchTool_SearchError(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := NewWebSearchTool(&fakeSearcher{err: boom}).InvokableRun(context.Background(), `{"query":"q"}`)
	assert.ErrorIs(t, err, boom)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	// "é" 占两个字节，不能从中间截断
	assert.Equal(t, "a...", truncate("aé", 2))
}
