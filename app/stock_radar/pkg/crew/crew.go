// Package crew 装配四个分析角色，并按固定顺序执行四个任务。
package crew

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/agent"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	dm "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// 任务 ID，与 tasks.yaml 中的键一致
const (
	FinancialAnalysis        = "financial_analysis"
	MarketAnalysis           = "market_analysis"
	RiskAssessment           = "risk_assessment"
	InvestmentRecommendation = "investment_recommendation"
)

// DateLayout 模板中 current_time 的格式
const DateLayout = "January 02, 2006"

// stage 流水线中的一个阶段
type stage struct {
	task  string
	agent string
	store func(*RunState, string)
}

var stages = []stage{
	{FinancialAnalysis, FinancialAnalyst, func(s *RunState, out string) { s.FinancialAnalysis = out }},
	{MarketAnalysis, MarketAnalyst, func(s *RunState, out string) { s.MarketAnalysis = out }},
	{RiskAssessment, RiskAnalyst, func(s *RunState, out string) { s.RiskAssessment = out }},
	{InvestmentRecommendation, InvestmentAdvisor, func(s *RunState, out string) { s.InvestmentRecommendation = out }},
}

// TaskError 某个任务失败，后续任务不会执行
type TaskError struct {
	Task  string
	Agent string
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (agent %s) failed: %v", e.Task, e.Agent, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Observer 任务生命周期回调
type Observer interface {
	TaskStarted(ctx context.Context, task, agent string)
	TaskFinished(ctx context.Context, out dm.TaskOutput, err error)
}

// Crew 一次分析运行，任务对象每次新建
type Crew struct {
	Ticker string
	Date   string

	registry  *Registry
	tasks     map[string]agent.Task
	observers []Observer
}

// NewStockAnalysisCrew 用股票代码和当前日期渲染两份模板并装配角色
func NewStockAnalysisCrew(ticker string, now time.Time, deps Dependencies, prompts config.PromptsConfig) (*Crew, error) {
	date := now.Format(DateLayout)

	agents, err := config.LoadAgentsConfig(prompts.Agents, map[string]string{
		"current_time": date,
	})
	if err != nil {
		return nil, fmt.Errorf("load agents config: %w", err)
	}
	tasks, err := config.LoadTasksConfig(prompts.Tasks, map[string]string{
		"company_stock": ticker,
		"current_time":  date,
	})
	if err != nil {
		return nil, fmt.Errorf("load tasks config: %w", err)
	}

	return New(ticker, date, agents, tasks, deps)
}

// New 使用已加载的配置装配 Crew
func New(ticker, date string, agents map[string]dm.AgentConfig, tasks map[string]dm.TaskConfig, deps Dependencies) (*Crew, error) {
	registry, err := NewRegistry(agents, deps)
	if err != nil {
		return nil, err
	}

	c := &Crew{
		Ticker:   ticker,
		Date:     date,
		registry: registry,
		tasks:    make(map[string]agent.Task, len(stages)),
	}
	for _, st := range stages {
		cfg, ok := tasks[st.task]
		if !ok {
			return nil, fmt.Errorf("task config %q not found", st.task)
		}
		if cfg.Agent != "" && cfg.Agent != st.agent {
			return nil, fmt.Errorf("task %q is bound to agent %q, expected %q", st.task, cfg.Agent, st.agent)
		}
		c.tasks[st.task] = agent.Task{Name: st.task, Config: cfg}
	}
	return c, nil
}

// AddObserver 注册回调
func (c *Crew) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// Kickoff 严格按顺序执行四个任务，任何失败都会中止运行
func (c *Crew) Kickoff(ctx context.Context) (*dm.CrewOutput, error) {
	chain := compose.NewChain[*RunState, *RunState]()
	for i, st := range stages {
		chain.AppendLambda(compose.InvokableLambda(c.runStage(i, st)), compose.WithNodeName(st.task))
	}

	runnable, err := chain.Compile(ctx, compose.WithGraphName("stock_analysis_crew"))
	if err != nil {
		return nil, fmt.Errorf("compile pipeline: %w", err)
	}

	logger.Log.Infof("开始分析 %s (%s)", c.Ticker, c.Date)
	state := &RunState{Ticker: c.Ticker, Date: c.Date}
	out, err := runnable.Invoke(ctx, state)
	if state.err != nil {
		return nil, state.err
	}
	if err != nil {
		return nil, err
	}

	return &dm.CrewOutput{
		Raw:   out.InvestmentRecommendation,
		Tasks: out.Outputs,
	}, nil
}

// runStage 第 n 个阶段的执行函数，上下文为前 n 个阶段的输出
func (c *Crew) runStage(n int, st stage) func(context.Context, *RunState) (*RunState, error) {
	return func(ctx context.Context, s *RunState) (*RunState, error) {
		log := logger.Log.WithFields(logrus.Fields{"task": st.task, "agent": st.agent})

		a, err := c.registry.Agent(st.agent)
		if err != nil {
			s.err = &TaskError{Task: st.task, Agent: st.agent, Err: err}
			return s, s.err
		}
		task := c.tasks[st.task]

		for _, o := range c.observers {
			o.TaskStarted(ctx, st.task, st.agent)
		}
		log.Info("任务开始")
		start := time.Now()

		raw, err := a.Execute(ctx, task, s.priorContext(n))
		out := dm.TaskOutput{Name: st.task, Agent: st.agent, Raw: raw, Prompt: task.Config.Description}

		for _, o := range c.observers {
			o.TaskFinished(ctx, out, err)
		}
		if err != nil {
			log.Errorf("任务失败: %v", err)
			s.err = &TaskError{Task: st.task, Agent: st.agent, Err: err}
			return s, s.err
		}

		log.Infof("任务完成，耗时 %s", time.Since(start).Round(time.Millisecond))
		st.store(s, raw)
		s.Outputs = append(s.Outputs, out)
		return s, nil
	}
}
