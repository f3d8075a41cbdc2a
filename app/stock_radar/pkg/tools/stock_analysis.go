package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/snapshot"
)

// StockAnalysisName 财务数据工具名
const StockAnalysisName = "stock_analysis"

// SnapshotBuilder 生成财务快照
type SnapshotBuilder interface {
	Build(ctx context.Context, ticker string) (*snapshot.FinancialSnapshot, error)
}

// StockAnalysisTool 返回指定股票的财务快照 JSON
type StockAnalysisTool struct {
	builder SnapshotBuilder
}

var _ tool.InvokableTool = (*StockAnalysisTool)(nil)

// NewStockAnalysisTool 创建财务数据工具
func NewStockAnalysisTool(b SnapshotBuilder) *StockAnalysisTool {
	return &StockAnalysisTool{builder: b}
}

// Info 工具描述
func (t *StockAnalysisTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: StockAnalysisName,
		Desc: "Analyzes a stock ticker and returns comprehensive financial data including annual/quarterly metrics, growth rates, and current stock price.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"ticker": {
				Type:     schema.String,
				Desc:     "Stock ticker symbol, e.g. AAPL",
				Required: true,
			},
		}),
	}, nil
}

type stockAnalysisArgs struct {
	Ticker string `json:"ticker"`
}

// InvokableRun 拉取数据并返回快照 JSON
func (t *StockAnalysisTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args stockAnalysisArgs
	if err := decodeArgs(argumentsInJSON, &args); err != nil {
		return "", err
	}
	ticker := strings.ToUpper(strings.TrimSpace(args.Ticker))
	if ticker == "" {
		return "", fmt.Errorf("ticker is required")
	}

	logger.Log.Infof("获取财务数据: %s", ticker)
	snap, err := t.builder.Build(ctx, ticker)
	if err != nil {
		return "", err
	}
	return snap.JSON()
}
