package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
)

const defaultAnthropicMaxTokens = 4096

// ErrToolsUnsupported Anthropic 适配器只支持纯文本对话
var ErrToolsUnsupported = errors.New("anthropic adapter does not support tool binding")

// Anthropic 基于 anthropic-sdk-go 的对话模型
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

var _ model.ToolCallingChatModel = (*Anthropic)(nil)

// NewAnthropic 创建 Anthropic 模型
func NewAnthropic(cfg config.LLMConfig, opts ...option.RequestOption) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is missing")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic model is missing")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &Anthropic{
		client:    anthropic.NewClient(reqOpts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

// Generate 发送一次 Messages 请求
func (a *Anthropic) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{}, opts...)
	if len(options.Tools) > 0 {
		return nil, ErrToolsUnsupported
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
	}
	if options.MaxTokens != nil {
		params.MaxTokens = int64(*options.MaxTokens)
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*options.Temperature))
	}

	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case schema.Assistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case schema.Tool:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock("Tool result:\n"+msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if len(params.Messages) == 0 {
		return nil, fmt.Errorf("no user message to send")
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("no response from anthropic")
	}

	in, out := int(message.Usage.InputTokens), int(message.Usage.OutputTokens)
	return &schema.Message{
		Role:    schema.Assistant,
		Content: sb.String(),
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(message.StopReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     in,
				CompletionTokens: out,
				TotalTokens:      in + out,
			},
		},
	}, nil
}

// Stream 不做真正的流式，返回只含一条消息的流
func (a *Anthropic) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := a.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 只接受空工具列表
func (a *Anthropic) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if len(tools) > 0 {
		return nil, ErrToolsUnsupported
	}
	return a, nil
}
