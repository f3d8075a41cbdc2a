package crew

import (
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/agent"
	dm "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// 角色 ID，与 agents.yaml 中的键一致
const (
	FinancialAnalyst  = "financial_analyst"
	MarketAnalyst     = "market_analyst"
	RiskAnalyst       = "risk_analyst"
	InvestmentAdvisor = "investment_advisor"
)

// Dependencies 进程级共享的模型和工具，启动时创建一次
type Dependencies struct {
	DefaultModel model.ToolCallingChatModel
	InvestModel  model.ToolCallingChatModel
	StockTool    tool.InvokableTool
	SearchTool   tool.InvokableTool
}

func (d Dependencies) validate() error {
	switch {
	case d.DefaultModel == nil:
		return fmt.Errorf("default model is required")
	case d.InvestModel == nil:
		return fmt.Errorf("invest model is required")
	case d.StockTool == nil:
		return fmt.Errorf("stock analysis tool is required")
	case d.SearchTool == nil:
		return fmt.Errorf("search tool is required")
	}
	return nil
}

// roleSpec 单个角色的装配方式
type roleSpec struct {
	id       string
	maxIter  int
	model    func(Dependencies) model.ToolCallingChatModel
	toolsFor func(Dependencies) []tool.InvokableTool
}

var roleSpecs = []roleSpec{
	{
		id:       FinancialAnalyst,
		maxIter:  3,
		model:    func(d Dependencies) model.ToolCallingChatModel { return d.DefaultModel },
		toolsFor: func(d Dependencies) []tool.InvokableTool { return []tool.InvokableTool{d.StockTool} },
	},
	{
		id:       MarketAnalyst,
		maxIter:  3,
		model:    func(d Dependencies) model.ToolCallingChatModel { return d.DefaultModel },
		toolsFor: func(d Dependencies) []tool.InvokableTool { return []tool.InvokableTool{d.SearchTool} },
	},
	{
		id:       RiskAnalyst,
		maxIter:  3,
		model:    func(d Dependencies) model.ToolCallingChatModel { return d.DefaultModel },
		toolsFor: func(d Dependencies) []tool.InvokableTool { return []tool.InvokableTool{d.StockTool} },
	},
	{
		id:       InvestmentAdvisor,
		maxIter:  0,
		model:    func(d Dependencies) model.ToolCallingChatModel { return d.InvestModel },
		toolsFor: func(Dependencies) []tool.InvokableTool { return nil },
	},
}

// Registry 角色 ID 到角色实例的映射
type Registry struct {
	agents map[string]*agent.Agent
}

// NewRegistry 根据角色配置和依赖装配四个角色
func NewRegistry(configs map[string]dm.AgentConfig, deps Dependencies) (*Registry, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := &Registry{agents: make(map[string]*agent.Agent, len(roleSpecs))}
	for _, spec := range roleSpecs {
		cfg, ok := configs[spec.id]
		if !ok {
			return nil, fmt.Errorf("agent config %q not found", spec.id)
		}
		r.agents[spec.id] = &agent.Agent{
			Name:            spec.id,
			Config:          cfg,
			Model:           spec.model(deps),
			Tools:           spec.toolsFor(deps),
			MaxIter:         spec.maxIter,
			AllowDelegation: false,
			Verbose:         true,
		}
	}
	return r, nil
}

// Agent 按 ID 取角色
func (r *Registry) Agent(id string) (*agent.Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", id)
	}
	return a, nil
}
