package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
)

func TestAnthropic_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20240620",
			"content": [{"type": "text", "text": "Recommendation: BUY"}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	m, err := NewAnthropic(config.LLMConfig{APIKey: "sk-ant-test", Model: "claude-3-5-sonnet-20240620", BaseURL: srv.URL})
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("You are an investment advisor."),
		schema.UserMessage("Recommend AAPL."),
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, "Recommendation: BUY", msg.Content)
	assert.Equal(t, 16, msg.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "claude-3-5-sonnet-20240620", body["model"])
	assert.EqualValues(t, defaultAnthropicMaxTokens, body["max_tokens"])
	assert.Len(t, body["messages"], 1)
	assert.NotEmpty(t, body["system"])
}

func TestAnthropic_NoRetryOnServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()

	m, err := NewAnthropic(config.LLMConfig{APIKey: "k", Model: "claude", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAnthropic_WithTools(t *testing.T) {
	m, err := NewAnthropic(config.LLMConfig{APIKey: "k", Model: "claude"})
	require.NoError(t, err)

	same, err := m.WithTools(nil)
	require.NoError(t, err)
	assert.Same(t, m, same)

	_, err = m.WithTools([]*schema.ToolInfo{{Name: "web_search"}})
	assert.ErrorIs(t, err, ErrToolsUnsupported)
}

func TestNewAnthropic_Validation(t *testing.T) {
	_, err := NewAnthropic(config.LLMConfig{Model: "claude"})
	assert.Error(t, err)
	_, err = NewAnthropic(config.LLMConfig{APIKey: "k"})
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	m, err := NewFromConfig(context.Background(), config.LLMConfig{Provider: ProviderAnthropic, APIKey: "k", Model: "claude"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, m)

	_, err = NewFromConfig(context.Background(), config.LLMConfig{Provider: "gemini"})
	assert.Error(t, err)
}

type countingModel struct {
	calls int
	tools []*schema.ToolInfo
}

func (c *countingModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	c.calls++
	return schema.AssistantMessage("ok", nil), nil
}

func (c *countingModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	c.calls++
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage("ok", nil)}), nil
}

func (c *countingModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &countingModel{tools: tools}, nil
}

func TestLimited_WaitsBeforeCall(t *testing.T) {
	inner := &countingModel{}
	m := WithLimiter(inner, NewLimiter(60, 1))

	_, err := m.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	// 桶已空，下一次需要等待约一秒，超时的 ctx 直接返回错误
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Generate(ctx, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestLimited_WithToolsSharesLimiter(t *testing.T) {
	l := rate.NewLimiter(rate.Inf, 1)
	m := WithLimiter(&countingModel{}, l)

	bound, err := m.WithTools([]*schema.ToolInfo{{Name: "stock_analysis"}})
	require.NoError(t, err)

	lb, ok := bound.(*Limited)
	require.True(t, ok)
	assert.Same(t, l, lb.limiter)
	assert.Len(t, lb.inner.(*countingModel).tools, 1)
}

func TestLimited_PropagatesErrors(t *testing.T) {
	boom := errors.New("rate limited upstream")
	m := WithLimiter(&failingModel{err: boom}, rate.NewLimiter(rate.Inf, 1))
	_, err := m.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

type failingModel struct {
	countingModel
	err error
}

func (f *failingModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return nil, f.err
}
