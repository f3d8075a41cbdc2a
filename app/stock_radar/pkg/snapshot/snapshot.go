// Package snapshot 将数据源返回的行情和财报整理成展示用的财务快照。
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/finance"
)

const timeLayout = "2006-01-02 15:04:05"

// MissingPeriodPolicy 财报不足两期时的处理方式
type MissingPeriodPolicy string

const (
	// Strict 缺少上一期时直接报错
	Strict MissingPeriodPolicy = "strict"
	// Lenient 缺少上一期时增长率记为 N/A
	Lenient MissingPeriodPolicy = "lenient"
)

// ParsePolicy 解析配置中的策略名，空字符串为 Strict
func ParsePolicy(s string) (MissingPeriodPolicy, error) {
	switch MissingPeriodPolicy(s) {
	case "", Strict:
		return Strict, nil
	case Lenient:
		return Lenient, nil
	}
	return "", fmt.Errorf("unknown missing period policy: %q", s)
}

// FinancialSnapshot 财务快照，所有数值均为展示字符串
type FinancialSnapshot struct {
	AsOf             string                   `json:"as_of"`
	CurrentPrice     CurrentPrice             `json:"current_price"`
	Annual           AnnualMetrics            `json:"annual"`
	Quarterly        QuarterlyMetrics         `json:"quarterly"`
	AnnualSummary    map[string]PeriodSummary `json:"annual_summary"`
	QuarterlySummary map[string]PeriodSummary `json:"quarterly_summary"`
}

// CurrentPrice 最新价格及其时间
type CurrentPrice struct {
	Price string `json:"price"`
	Time  string `json:"time"`
}

// AnnualMetrics 最近一个财年的指标
type AnnualMetrics struct {
	Revenue         string `json:"revenue"`
	CostOfRevenue   string `json:"cost_of_revenue"`
	GrossProfit     string `json:"gross_profit"`
	OperatingIncome string `json:"operating_income"`
	NetIncome       string `json:"net_income"`
	EBITDA          string `json:"ebitda"`
	GrossMargin     string `json:"gross_margin"`
	OperatingMargin string `json:"operating_margin"`
	NetMargin       string `json:"net_margin"`
	RevenueGrowth   string `json:"revenue_growth"`
	NetIncomeGrowth string `json:"net_income_growth"`
	DilutedEPS      string `json:"diluted_eps"`
	DebtRatio       string `json:"debt_ratio"`
}

// QuarterlyMetrics 最近一个季度的指标
type QuarterlyMetrics struct {
	Revenue            string `json:"revenue"`
	NetIncome          string `json:"net_income"`
	RevenueGrowthQoQ   string `json:"revenue_growth_qoq"`
	NetIncomeGrowthQoQ string `json:"net_income_growth_qoq"`
}

// PeriodSummary 单个报告期的摘要
type PeriodSummary struct {
	TotalRevenue    string `json:"total_revenue"`
	OperatingIncome string `json:"operating_income"`
	NetIncome       string `json:"net_income"`
	EBITDA          string `json:"ebitda"`
}

// JSON 序列化快照，map 的键按日期排序，结果稳定
func (s *FinancialSnapshot) JSON() (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Input 已拉取的原始数据
type Input struct {
	Prices       finance.PriceSeries
	Annual       *finance.Table
	Quarterly    *finance.Table
	BalanceSheet *finance.Table
}

// Builder 拉取数据并生成快照
type Builder struct {
	Provider finance.Provider
	Now      func() time.Time
	Policy   MissingPeriodPolicy
}

// NewBuilder 创建 Builder，时钟默认为 time.Now
func NewBuilder(p finance.Provider, policy MissingPeriodPolicy) *Builder {
	return &Builder{Provider: p, Now: time.Now, Policy: policy}
}

// Build 依次拉取分时价格、年报、季报和资产负债表，然后格式化
func (b *Builder) Build(ctx context.Context, ticker string) (*FinancialSnapshot, error) {
	prices, err := b.Provider.IntradayPrices(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch prices for %s: %w", ticker, err)
	}
	annual, err := b.Provider.Financials(ctx, ticker, finance.Annual)
	if err != nil {
		return nil, fmt.Errorf("fetch annual financials for %s: %w", ticker, err)
	}
	quarterly, err := b.Provider.Financials(ctx, ticker, finance.Quarterly)
	if err != nil {
		return nil, fmt.Errorf("fetch quarterly financials for %s: %w", ticker, err)
	}
	balance, err := b.Provider.BalanceSheet(ctx, ticker, finance.Annual)
	if err != nil {
		return nil, fmt.Errorf("fetch balance sheet for %s: %w", ticker, err)
	}

	snap, err := b.Format(Input{Prices: prices, Annual: annual, Quarterly: quarterly, BalanceSheet: balance})
	if err != nil {
		return nil, fmt.Errorf("format snapshot for %s: %w", ticker, err)
	}
	return snap, nil
}

// Format 根据已拉取的数据生成快照，不访问网络
func (b *Builder) Format(in Input) (*FinancialSnapshot, error) {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	last, err := in.Prices.Last()
	if err != nil {
		return nil, err
	}
	if in.Annual == nil || in.Quarterly == nil || in.BalanceSheet == nil {
		return nil, fmt.Errorf("financial tables are incomplete")
	}

	r := reader{policy: b.Policy}
	a, q, bs := in.Annual, in.Quarterly, in.BalanceSheet

	revenue := r.current(a, finance.TotalRevenue)
	costOfRevenue := r.current(a, finance.CostOfRevenue)
	grossProfit := r.current(a, finance.GrossProfit)
	operatingIncome := r.current(a, finance.OperatingIncome)
	netIncome := r.current(a, finance.NetIncome)
	ebitda := r.current(a, finance.EBITDA)
	dilutedEPS := r.current(a, finance.DilutedEPS)
	prevRevenue := r.previous(a, finance.TotalRevenue)
	prevNetIncome := r.previous(a, finance.NetIncome)

	totalAssets := r.current(bs, finance.TotalAssets)
	totalLiabilities := r.current(bs, finance.TotalLiabilitiesNetMinorityInterest)

	qRevenue := r.current(q, finance.TotalRevenue)
	qNetIncome := r.current(q, finance.NetIncome)
	qPrevRevenue := r.previous(q, finance.TotalRevenue)
	qPrevNetIncome := r.previous(q, finance.NetIncome)

	if r.err != nil {
		return nil, r.err
	}

	return &FinancialSnapshot{
		AsOf: now().Format(timeLayout),
		CurrentPrice: CurrentPrice{
			Price: formatDecimal(last.Close),
			Time:  last.Time.Format(timeLayout),
		},
		Annual: AnnualMetrics{
			Revenue:         formatNumber(revenue),
			CostOfRevenue:   formatNumber(costOfRevenue),
			GrossProfit:     formatNumber(grossProfit),
			OperatingIncome: formatNumber(operatingIncome),
			NetIncome:       formatNumber(netIncome),
			EBITDA:          formatNumber(ebitda),
			GrossMargin:     formatPercent(ratio(grossProfit, revenue)),
			OperatingMargin: formatPercent(ratio(operatingIncome, revenue)),
			NetMargin:       formatPercent(ratio(netIncome, revenue)),
			RevenueGrowth:   formatPercent(growthRate(revenue, prevRevenue)),
			NetIncomeGrowth: formatPercent(growthRate(netIncome, prevNetIncome)),
			DilutedEPS:      formatDecimal(dilutedEPS),
			DebtRatio:       formatPercent(ratio(totalLiabilities, totalAssets)),
		},
		Quarterly: QuarterlyMetrics{
			Revenue:            formatNumber(qRevenue),
			NetIncome:          formatNumber(qNetIncome),
			RevenueGrowthQoQ:   formatPercent(growthRate(qRevenue, qPrevRevenue)),
			NetIncomeGrowthQoQ: formatPercent(growthRate(qNetIncome, qPrevNetIncome)),
		},
		AnnualSummary:    summarize(a),
		QuarterlySummary: summarize(q),
	}, nil
}

// reader 记录第一个查找错误，之后的读取直接返回 NaN
type reader struct {
	policy MissingPeriodPolicy
	err    error
}

func (r *reader) current(t *finance.Table, row string) float64 {
	return r.value(t, row, 0)
}

func (r *reader) previous(t *finance.Table, row string) float64 {
	// 宽松模式下只容忍缺少上一期，行不存在仍然报错
	if r.policy == Lenient && t.Len() < 2 {
		if !t.Has(row) && r.err == nil {
			_, r.err = t.Value(row, 1)
		}
		return math.NaN()
	}
	return r.value(t, row, 1)
}

func (r *reader) value(t *finance.Table, row string, col int) float64 {
	if r.err != nil {
		return math.NaN()
	}
	v, err := t.Value(row, col)
	if err != nil {
		r.err = err
		return math.NaN()
	}
	return v
}

// summarize 遍历表格的每个报告期
func summarize(t *finance.Table) map[string]PeriodSummary {
	out := make(map[string]PeriodSummary, t.Len())
	for _, date := range t.Columns() {
		out[date.Format(time.DateOnly)] = PeriodSummary{
			TotalRevenue:    formatNumber(t.Get(finance.TotalRevenue, date)),
			OperatingIncome: formatNumber(t.Get(finance.OperatingIncome, date)),
			NetIncome:       formatNumber(t.Get(finance.NetIncome, date)),
			EBITDA:          formatNumber(t.Get(finance.EBITDA, date)),
		}
	}
	return out
}
