package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"ptt-copy-ai/pkg/metrics"
)

// limitedModel 在 Provider 客户端外层执行出站限流、超时与错误包装
type limitedModel struct {
	inner    model.BaseChatModel
	provider string
	limiter  *rate.Limiter
	timeout  time.Duration
}

func newLimitedModel(inner model.BaseChatModel, provider string, limiter *rate.Limiter, timeout time.Duration) *limitedModel {
	return &limitedModel{
		inner:    inner,
		provider: provider,
		limiter:  limiter,
		timeout:  timeout,
	}
}

func (m *limitedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	out, err := m.inner.Generate(ctx, input, opts...)
	if err != nil {
		return nil, wrapProviderError(err)
	}
	return out, nil
}

// Stream 只做限流；流式读取的时长由调用方的 ctx 控制
func (m *limitedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	out, err := m.inner.Stream(ctx, input, opts...)
	if err != nil {
		return nil, wrapProviderError(err)
	}
	return out, nil
}

// IsCallbacksEnabled 内层模型自行触发回调时，编排层不再重复包装
func (m *limitedModel) IsCallbacksEnabled() bool {
	return components.IsCallbacksEnabled(m.inner)
}

func (m *limitedModel) GetType() string {
	if t, ok := components.GetType(m.inner); ok {
		return t
	}
	return "LimitedChatModel"
}

func (m *limitedModel) wait(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	start := time.Now()
	err := m.limiter.Wait(ctx)
	metrics.LLMRateLimitWait.WithLabelValues(m.provider).Observe(time.Since(start).Seconds())
	return err
}

func (m *limitedModel) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}
