// Package yahoo 通过 Yahoo Finance 公开接口获取分时价格和财报数据。
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/finance"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"resty.dev/v3"
)

const (
	defaultChartBaseURL      = "https://query1.finance.yahoo.com"
	defaultTimeseriesBaseURL = "https://query2.finance.yahoo.com"

	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// 财报时间序列的起始时间，足够覆盖所有公开的年报
	timeseriesPeriod1 = 493590046
)

// Config Yahoo 客户端配置
type Config struct {
	ChartBaseURL      string
	TimeseriesBaseURL string
	// RetryCount 为 0 时不重试
	RetryCount int
	Timeout    time.Duration
}

// Client Yahoo Finance 客户端，实现 finance.Provider
type Client struct {
	http              *resty.Client
	chartBaseURL      string
	timeseriesBaseURL string
	now               func() time.Time
}

var _ finance.Provider = (*Client)(nil)

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.ChartBaseURL == "" {
		cfg.ChartBaseURL = defaultChartBaseURL
	}
	if cfg.TimeseriesBaseURL == "" {
		cfg.TimeseriesBaseURL = defaultTimeseriesBaseURL
	}

	client := resty.New().
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.RetryCount > 0 {
		client.SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(defaultRetryWaitTime).
			SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
			AddRetryConditions(retryCondition).
			AddRetryHooks(retryHook)
	}

	return &Client{
		http:              client,
		chartBaseURL:      strings.TrimRight(cfg.ChartBaseURL, "/"),
		timeseriesBaseURL: strings.TrimRight(cfg.TimeseriesBaseURL, "/"),
		now:               time.Now,
	}
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.http.Close()
}

// retryCondition 网络错误、5xx、429 和 408 重试
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	switch code := r.StatusCode(); {
	case code >= 500, code == 429, code == 408:
		return true
	}
	return false
}

func retryHook(r *resty.Response, err error) {
	if err != nil {
		logger.Log.Debugf("Yahoo 请求重试: url=%s attempt=%d err=%v", r.Request.URL, r.Request.Attempt, err)
		return
	}
	logger.Log.Debugf("Yahoo 请求重试: url=%s attempt=%d status=%d", r.Request.URL, r.Request.Attempt, r.StatusCode())
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				Timezone  string `json:"timezone"`
				GMTOffset int    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// IntradayPrices 最近一个交易日的 1 分钟价格，时间使用交易所时区
func (c *Client) IntradayPrices(ctx context.Context, ticker string) (finance.PriceSeries, error) {
	var result chartResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParams(map[string]string{
			"range":    "1d",
			"interval": "1m",
		}).
		SetResult(&result).
		Get(c.chartBaseURL + "/v8/finance/chart/{ticker}")
	if err != nil {
		return nil, classifyTransportError(ticker, err)
	}
	if !resp.IsSuccess() {
		return nil, classifyHTTPError(ticker, resp.StatusCode(), describeBody(resp.Bytes()))
	}

	chart := result.Chart
	if chart.Error != nil {
		return nil, newValidationError(ticker, chart.Error.Code+": "+chart.Error.Description)
	}
	if len(chart.Result) == 0 {
		return nil, newValidationError(ticker, "empty chart result")
	}

	r := chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, finance.ErrNoPrices
	}
	closes := r.Indicators.Quote[0].Close
	loc := time.FixedZone(r.Meta.Timezone, r.Meta.GMTOffset)

	series := make(finance.PriceSeries, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		// 停牌或无成交的分钟 close 为 null
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		series = append(series, finance.PricePoint{
			Time:  time.Unix(ts, 0).In(loc),
			Close: *closes[i],
		})
	}
	if len(series) == 0 {
		return nil, finance.ErrNoPrices
	}
	return series, nil
}

// Financials 利润表
func (c *Client) Financials(ctx context.Context, ticker string, freq finance.Frequency) (*finance.Table, error) {
	return c.timeseries(ctx, ticker, freq, finance.IncomeStatementRows)
}

// BalanceSheet 资产负债表
func (c *Client) BalanceSheet(ctx context.Context, ticker string, freq finance.Frequency) (*finance.Table, error) {
	return c.timeseries(ctx, ticker, freq, finance.BalanceSheetRows)
}

type timeseriesResponse struct {
	Timeseries struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *apiError                    `json:"error"`
	} `json:"timeseries"`
}

type timeseriesMeta struct {
	Type []string `json:"type"`
}

type reportedValue struct {
	Raw float64 `json:"raw"`
}

type timeseriesPoint struct {
	AsOfDate      string         `json:"asOfDate"`
	ReportedValue *reportedValue `json:"reportedValue"`
}

func (c *Client) timeseries(ctx context.Context, ticker string, freq finance.Frequency, rows []string) (*finance.Table, error) {
	types := make([]string, len(rows))
	for i, row := range rows {
		types[i] = string(freq) + row
	}

	var result timeseriesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParams(map[string]string{
			"symbol":  ticker,
			"type":    strings.Join(types, ","),
			"period1": strconv.Itoa(timeseriesPeriod1),
			"period2": strconv.FormatInt(c.now().Unix(), 10),
		}).
		SetResult(&result).
		Get(c.timeseriesBaseURL + "/ws/fundamentals-timeseries/v1/finance/timeseries/{ticker}")
	if err != nil {
		return nil, classifyTransportError(ticker, err)
	}
	if !resp.IsSuccess() {
		return nil, classifyHTTPError(ticker, resp.StatusCode(), describeBody(resp.Bytes()))
	}
	if result.Timeseries.Error != nil {
		e := result.Timeseries.Error
		return nil, newValidationError(ticker, e.Code+": "+e.Description)
	}

	return parseTimeseries(ticker, freq, result.Timeseries.Result)
}

// parseTimeseries 把每个 "<freq><Row>" 序列写入表格对应的行
func parseTimeseries(ticker string, freq finance.Frequency, results []map[string]json.RawMessage) (*finance.Table, error) {
	table := finance.NewTable()
	prefix := string(freq)

	for _, item := range results {
		var meta timeseriesMeta
		if err := json.Unmarshal(item["meta"], &meta); err != nil || len(meta.Type) == 0 {
			continue
		}
		key := meta.Type[0]
		raw, ok := item[key]
		if !ok {
			continue
		}

		var points []*timeseriesPoint
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, newValidationError(ticker, fmt.Sprintf("decode %s: %v", key, err))
		}

		row := strings.TrimPrefix(key, prefix)
		for _, p := range points {
			// 未披露的数据点没有 reportedValue，保持缺失而不是记为 0
			if p == nil || p.AsOfDate == "" || p.ReportedValue == nil {
				continue
			}
			date, err := time.Parse(time.DateOnly, p.AsOfDate)
			if err != nil {
				return nil, newValidationError(ticker, fmt.Sprintf("bad asOfDate %q in %s", p.AsOfDate, key))
			}
			if math.IsNaN(p.ReportedValue.Raw) {
				continue
			}
			table.Set(row, date, p.ReportedValue.Raw)
		}
	}
	return table, nil
}

func classifyTransportError(ticker string, err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return newTimeoutError(ticker, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newTimeoutError(ticker, err)
	}
	return newNetworkError(ticker, err)
}

func describeBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
