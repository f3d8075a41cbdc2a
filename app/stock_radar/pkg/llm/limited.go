package llm

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

// NewLimiter 按每分钟请求数限流，qps 作为突发容量
func NewLimiter(rpm, qps int) *rate.Limiter {
	if rpm <= 0 {
		rpm = 60
	}
	if qps <= 0 {
		qps = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), qps)
}

// Limited 每次调用前等待限流器，失败不重试
type Limited struct {
	inner   model.ToolCallingChatModel
	limiter *rate.Limiter
}

var _ model.ToolCallingChatModel = (*Limited)(nil)

// WithLimiter 为模型加上限流，多个模型可以共享同一个限流器
func WithLimiter(m model.ToolCallingChatModel, l *rate.Limiter) *Limited {
	return &Limited{inner: m, limiter: l}
}

func (l *Limited) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.Generate(ctx, input, opts...)
}

func (l *Limited) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.Stream(ctx, input, opts...)
}

// WithTools 绑定工具后仍共享原来的限流器
func (l *Limited) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m, err := l.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &Limited{inner: m, limiter: l.limiter}, nil
}
