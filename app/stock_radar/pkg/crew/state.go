package crew

import (
	"strings"

	dm "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// RunState 一次运行中逐步累积的上下文，每个阶段从具名字段读取前序输出
type RunState struct {
	Ticker string
	Date   string

	FinancialAnalysis        string
	MarketAnalysis           string
	RiskAssessment           string
	InvestmentRecommendation string

	Outputs []dm.TaskOutput

	err *TaskError
}

const contextSeparator = "\n\n----------\n\n"

// priorContext 返回前 n 个阶段的输出
func (s *RunState) priorContext(n int) string {
	prior := []string{s.FinancialAnalysis, s.MarketAnalysis, s.RiskAssessment, s.InvestmentRecommendation}
	if n > len(prior) {
		n = len(prior)
	}
	parts := make([]string, 0, n)
	for _, p := range prior[:n] {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, contextSeparator)
}
