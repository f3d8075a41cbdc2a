package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dm "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// scriptedModel 按顺序返回预设回复，并记录每次调用时是否绑定了工具
type scriptedModel struct {
	replies   []*schema.Message
	err       error
	calls     int
	withTools []bool
	inputs    [][]*schema.Message
	bound     bool
	parent    *scriptedModel
}

func (m *scriptedModel) root() *scriptedModel {
	if m.parent != nil {
		return m.parent
	}
	return m
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	r := m.root()
	r.withTools = append(r.withTools, m.bound)
	r.inputs = append(r.inputs, append([]*schema.Message(nil), input...))
	if r.err != nil {
		return nil, r.err
	}
	if r.calls >= len(r.replies) {
		return nil, errors.New("script exhausted")
	}
	reply := r.replies[r.calls]
	r.calls++
	return reply, nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &scriptedModel{bound: len(tools) > 0, parent: m.root()}, nil
}

func toolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

type echoTool struct {
	name string
	args []string
	err  error
}

func (e *echoTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: e.name, Desc: "echo"}, nil
}

func (e *echoTool) InvokableRun(ctx context.Context, args string, _ ...tool.Option) (string, error) {
	e.args = append(e.args, args)
	if e.err != nil {
		return "", e.err
	}
	return "result for " + args, nil
}

func newAgent(m model.ToolCallingChatModel, maxIter int, tools ...tool.InvokableTool) *Agent {
	return &Agent{
		Name:    "financial_analyst",
		Config:  dm.AgentConfig{Role: "Financial Analyst", Goal: "Analyze AAPL", Backstory: "Veteran analyst."},
		Model:   m,
		Tools:   tools,
		MaxIter: maxIter,
	}
}

var testTask = Task{Name: "financial_analysis", Config: dm.TaskConfig{Description: "Analyze AAPL financials", ExpectedOutput: "A report"}}

func TestExecute_DirectAnswer(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("  final report ", nil)}}
	out, err := newAgent(m, 3).Execute(context.Background(), testTask, "")
	require.NoError(t, err)
	assert.Equal(t, "final report", out)
	assert.Equal(t, []bool{false}, m.withTools)

	sys, user := m.inputs[0][0], m.inputs[0][1]
	assert.Equal(t, schema.System, sys.Role)
	assert.Contains(t, sys.Content, "You are Financial Analyst.")
	assert.Contains(t, sys.Content, "Your personal goal is: Analyze AAPL")
	assert.Contains(t, user.Content, "Current Task: Analyze AAPL financials")
	assert.NotContains(t, user.Content, "context you're working with")
}

func TestExecute_ToolLoop(t *testing.T) {
	stock := &echoTool{name: "stock_analysis"}
	m := &scriptedModel{replies: []*schema.Message{
		toolCall("call_1", "stock_analysis", `{"ticker":"AAPL"}`),
		schema.AssistantMessage("AAPL looks strong", nil),
	}}

	out, err := newAgent(m, 3, stock).Execute(context.Background(), testTask, "prior output")
	require.NoError(t, err)
	assert.Equal(t, "AAPL looks strong", out)
	assert.Equal(t, []string{`{"ticker":"AAPL"}`}, stock.args)
	assert.Equal(t, []bool{true, true}, m.withTools)

	second := m.inputs[1]
	require.Len(t, second, 4)
	assert.Contains(t, second[1].Content, "prior output")
	assert.Equal(t, schema.Tool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)
	assert.Equal(t, `result for {"ticker":"AAPL"}`, second[3].Content)
}

func TestExecute_MaxIterForcesFinalAnswer(t *testing.T) {
	stock := &echoTool{name: "stock_analysis"}
	m := &scriptedModel{replies: []*schema.Message{
		toolCall("1", "stock_analysis", `{}`),
		toolCall("2", "stock_analysis", `{}`),
		schema.AssistantMessage("best effort answer", nil),
	}}

	out, err := newAgent(m, 2, stock).Execute(context.Background(), testTask, "")
	require.NoError(t, err)
	assert.Equal(t, "best effort answer", out)
	assert.Len(t, stock.args, 2)
	// 第三次调用不再绑定工具
	assert.Equal(t, []bool{true, true, false}, m.withTools)

	last := m.inputs[2]
	assert.Equal(t, finalAnswerPrompt, last[len(last)-1].Content)
}

func TestExecute_UncappedKeepsCallingTools(t *testing.T) {
	stock := &echoTool{name: "stock_analysis"}
	var replies []*schema.Message
	for i := 0; i < 5; i++ {
		replies = append(replies, toolCall("c", "stock_analysis", `{}`))
	}
	replies = append(replies, schema.AssistantMessage("done", nil))
	m := &scriptedModel{replies: replies}

	out, err := newAgent(m, 0, stock).Execute(context.Background(), testTask, "")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Len(t, stock.args, 5)
}

func TestExecute_UnknownToolIsReported(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		toolCall("x", "delegate_work", `{}`),
		schema.AssistantMessage("recovered", nil),
	}}

	out, err := newAgent(m, 3, &echoTool{name: "stock_analysis"}).Execute(context.Background(), testTask, "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)

	toolMsg := m.inputs[1][3]
	assert.True(t, strings.HasPrefix(toolMsg.Content, "Error: tool \"delegate_work\" does not exist"))
	assert.Contains(t, toolMsg.Content, "stock_analysis")
}

func TestExecute_ToolErrorIsFedBack(t *testing.T) {
	stock := &echoTool{name: "stock_analysis", err: errors.New("lookup TotalRevenue: row not found")}
	m := &scriptedModel{replies: []*schema.Message{
		toolCall("1", "stock_analysis", `{"ticker":"ZZZZ"}`),
		schema.AssistantMessage("data unavailable", nil),
	}}

	out, err := newAgent(m, 3, stock).Execute(context.Background(), testTask, "")
	require.NoError(t, err)
	assert.Equal(t, "data unavailable", out)
	assert.Contains(t, m.inputs[1][3].Content, "row not found")
}

func TestExecute_ModelErrorAborts(t *testing.T) {
	boom := errors.New("429 too many requests")
	m := &scriptedModel{err: boom}
	_, err := newAgent(m, 3).Execute(context.Background(), testTask, "")
	assert.ErrorIs(t, err, boom)
}

func TestExecute_EmptyAnswer(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("   ", nil)}}
	_, err := newAgent(m, 3).Execute(context.Background(), testTask, "")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestExecute_DelegationRejected(t *testing.T) {
	a := newAgent(&scriptedModel{}, 3)
	a.AllowDelegation = true
	_, err := a.Execute(context.Background(), testTask, "")
	assert.ErrorIs(t, err, ErrDelegationUnsupported)
}

func TestExecute_DuplicateTool(t *testing.T) {
	a := newAgent(&scriptedModel{}, 3, &echoTool{name: "t"}, &echoTool{name: "t"})
	_, err := a.Execute(context.Background(), testTask, "")
	assert.Error(t, err)
}
