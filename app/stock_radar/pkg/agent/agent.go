// Package agent 实现单个角色完成任务的过程: 调用模型，按需执行工具，直到给出最终答案。
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	dm "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

var (
	// ErrEmptyAnswer 模型没有给出任何内容
	ErrEmptyAnswer = errors.New("model returned an empty answer")
	// ErrDelegationUnsupported 角色之间不允许委派任务
	ErrDelegationUnsupported = errors.New("task delegation is not supported")
)

const finalAnswerPrompt = "You have reached the maximum number of tool uses. Do not call any more tools. Using the information gathered so far, give your best complete Final Answer now."

// Task 交给角色执行的任务
type Task struct {
	Name   string
	Config dm.TaskConfig
}

// Agent 角色: 人设、模型、可用工具和行为限制
type Agent struct {
	Name   string
	Config dm.AgentConfig
	Model  model.ToolCallingChatModel
	Tools  []tool.InvokableTool
	// MaxIter 请求工具的模型轮数上限，0 表示不限制
	MaxIter         int
	AllowDelegation bool
	Verbose         bool
}

// Execute 执行任务，taskContext 为前序任务的输出
func (a *Agent) Execute(ctx context.Context, task Task, taskContext string) (string, error) {
	if a.AllowDelegation {
		return "", ErrDelegationUnsupported
	}
	if a.Model == nil {
		return "", fmt.Errorf("agent %s has no model", a.Name)
	}

	log := logger.Log.WithFields(logrus.Fields{"agent": a.Name, "task": task.Name})

	tools, infos, err := a.indexTools(ctx)
	if err != nil {
		return "", err
	}

	chat := a.Model
	if len(infos) > 0 {
		chat, err = a.Model.WithTools(infos)
		if err != nil {
			return "", fmt.Errorf("bind tools for %s: %w", a.Name, err)
		}
	}

	messages := []*schema.Message{
		schema.SystemMessage(a.systemPrompt()),
		schema.UserMessage(taskPrompt(task.Config, taskContext)),
	}

	toolTurns := 0
	for iteration := 1; ; iteration++ {
		final := len(infos) == 0 || (a.MaxIter > 0 && toolTurns >= a.MaxIter)
		current := chat
		if final && len(infos) > 0 {
			// 工具轮数用尽，去掉工具再问一次
			current = a.Model
			messages = append(messages, schema.UserMessage(finalAnswerPrompt))
		}

		if a.Verbose {
			log.WithField("iteration", iteration).Info("调用模型")
		}
		resp, err := current.Generate(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("agent %s: %w", a.Name, err)
		}

		if final || len(resp.ToolCalls) == 0 {
			answer := strings.TrimSpace(resp.Content)
			if answer == "" {
				return "", fmt.Errorf("agent %s: %w", a.Name, ErrEmptyAnswer)
			}
			if a.Verbose {
				log.WithField("iteration", iteration).Infof("完成任务，输出 %d 字节", len(answer))
			}
			return answer, nil
		}

		toolTurns++
		messages = append(messages, resp)
		for _, call := range resp.ToolCalls {
			result := a.invokeTool(ctx, log.WithField("iteration", iteration), tools, call)
			messages = append(messages, schema.ToolMessage(result, call.ID))
		}
	}
}

// indexTools 按名称索引工具并收集描述
func (a *Agent) indexTools(ctx context.Context) (map[string]tool.InvokableTool, []*schema.ToolInfo, error) {
	byName := make(map[string]tool.InvokableTool, len(a.Tools))
	infos := make([]*schema.ToolInfo, 0, len(a.Tools))
	for _, t := range a.Tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("tool info: %w", err)
		}
		if _, dup := byName[info.Name]; dup {
			return nil, nil, fmt.Errorf("agent %s: duplicate tool %q", a.Name, info.Name)
		}
		byName[info.Name] = t
		infos = append(infos, info)
	}
	return byName, infos, nil
}

// invokeTool 执行一次工具调用。找不到工具或工具报错时把错误作为文本返回给模型
func (a *Agent) invokeTool(ctx context.Context, log *logrus.Entry, tools map[string]tool.InvokableTool, call schema.ToolCall) string {
	name := call.Function.Name
	log = log.WithField("tool", name)

	t, ok := tools[name]
	if !ok {
		names := make([]string, 0, len(tools))
		for n := range tools {
			names = append(names, n)
		}
		sort.Strings(names)
		log.Warn("模型调用了不存在的工具")
		return fmt.Sprintf("Error: tool %q does not exist. Available tools: %s", name, strings.Join(names, ", "))
	}

	if a.Verbose {
		log.Infof("调用工具，参数: %s", call.Function.Arguments)
	}
	out, err := t.InvokableRun(ctx, call.Function.Arguments)
	if err != nil {
		log.Warnf("工具执行失败: %v", err)
		return fmt.Sprintf("Error: tool %q failed: %v", name, err)
	}
	return out
}

func (a *Agent) systemPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s.", strings.TrimSpace(a.Config.Role))
	if b := strings.TrimSpace(a.Config.Backstory); b != "" {
		fmt.Fprintf(&sb, " %s", b)
	}
	if g := strings.TrimSpace(a.Config.Goal); g != "" {
		fmt.Fprintf(&sb, "\nYour personal goal is: %s", g)
	}
	return sb.String()
}

func taskPrompt(cfg dm.TaskConfig, taskContext string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current Task: %s\n", strings.TrimSpace(cfg.Description))
	if eo := strings.TrimSpace(cfg.ExpectedOutput); eo != "" {
		fmt.Fprintf(&sb, "\nThis is the expected criteria for your final answer: %s\n", eo)
		sb.WriteString("You MUST return the actual complete content as the final answer, not a summary.\n")
	}
	if c := strings.TrimSpace(taskContext); c != "" {
		fmt.Fprintf(&sb, "\nThis is the context you're working with:\n%s\n", c)
	}
	sb.WriteString("\nBegin! Use the tools available when you need data, and give your best Final Answer.")
	return sb.String()
}
