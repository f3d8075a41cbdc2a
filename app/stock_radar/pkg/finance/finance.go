// Package finance 定义与具体数据源无关的行情和财报数据结构。
package finance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Frequency 财报频率
type Frequency string

const (
	Annual    Frequency = "annual"
	Quarterly Frequency = "quarterly"
)

// 财报行名，与数据源返回的字段名一致
const (
	TotalRevenue                        = "TotalRevenue"
	CostOfRevenue                       = "CostOfRevenue"
	GrossProfit                         = "GrossProfit"
	OperatingIncome                     = "OperatingIncome"
	NetIncome                           = "NetIncome"
	EBITDA                              = "EBITDA"
	DilutedEPS                          = "DilutedEPS"
	TotalAssets                         = "TotalAssets"
	TotalLiabilitiesNetMinorityInterest = "TotalLiabilitiesNetMinorityInterest"
)

// IncomeStatementRows 利润表需要拉取的行
var IncomeStatementRows = []string{
	TotalRevenue, CostOfRevenue, GrossProfit, OperatingIncome, NetIncome, EBITDA, DilutedEPS,
}

// BalanceSheetRows 资产负债表需要拉取的行
var BalanceSheetRows = []string{TotalAssets, TotalLiabilitiesNetMinorityInterest}

// Provider 财经数据源
type Provider interface {
	// IntradayPrices 最近一个交易日的分钟级价格
	IntradayPrices(ctx context.Context, ticker string) (PriceSeries, error)
	// Financials 利润表
	Financials(ctx context.Context, ticker string, freq Frequency) (*Table, error)
	// BalanceSheet 资产负债表
	BalanceSheet(ctx context.Context, ticker string, freq Frequency) (*Table, error)
}

// PricePoint 单个价格点
type PricePoint struct {
	Time  time.Time
	Close float64
}

// PriceSeries 按时间升序排列的价格序列
type PriceSeries []PricePoint

// ErrNoPrices 价格序列为空
var ErrNoPrices = errors.New("no price data")

// Last 返回最后一个价格点
func (s PriceSeries) Last() (PricePoint, error) {
	if len(s) == 0 {
		return PricePoint{}, ErrNoPrices
	}
	return s[len(s)-1], nil
}

// LookupError 行或列不存在
type LookupError struct {
	Row    string
	Column int
	Reason string
}

func (e *LookupError) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("lookup %s[%d]: %s", e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("lookup %s: %s", e.Row, e.Reason)
}

// Table 财报表格: 行为科目，列为报告期 (最新的在前)，缺失值为 NaN
type Table struct {
	columns []time.Time
	rows    map[string]map[time.Time]float64
}

// NewTable 创建空表
func NewTable() *Table {
	return &Table{rows: make(map[string]map[time.Time]float64)}
}

// Set 写入一个单元格，按需新增列
func (t *Table) Set(row string, date time.Time, v float64) {
	date = date.UTC().Truncate(24 * time.Hour)
	if _, ok := t.rows[row]; !ok {
		t.rows[row] = make(map[time.Time]float64)
	}
	t.rows[row][date] = v

	for _, c := range t.columns {
		if c.Equal(date) {
			return
		}
	}
	t.columns = append(t.columns, date)
	sort.Slice(t.columns, func(i, j int) bool { return t.columns[i].After(t.columns[j]) })
}

// Columns 返回报告期，最新的在前
func (t *Table) Columns() []time.Time {
	out := make([]time.Time, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len 列数
func (t *Table) Len() int {
	return len(t.columns)
}

// Has 是否包含某行
func (t *Table) Has(row string) bool {
	_, ok := t.rows[row]
	return ok
}

// Value 取第 col 列的值。行不存在或列越界时返回 LookupError，单元格缺失时返回 NaN
func (t *Table) Value(row string, col int) (float64, error) {
	cells, ok := t.rows[row]
	if !ok {
		return math.NaN(), &LookupError{Row: row, Column: -1, Reason: "row not found"}
	}
	if col < 0 || col >= len(t.columns) {
		return math.NaN(), &LookupError{Row: row, Column: col, Reason: fmt.Sprintf("only %d columns", len(t.columns))}
	}
	v, ok := cells[t.columns[col]]
	if !ok {
		return math.NaN(), nil
	}
	return v, nil
}

// Get 按行和日期取值，不存在时返回 NaN
func (t *Table) Get(row string, date time.Time) float64 {
	cells, ok := t.rows[row]
	if !ok {
		return math.NaN()
	}
	v, ok := cells[date]
	if !ok {
		return math.NaN()
	}
	return v
}
