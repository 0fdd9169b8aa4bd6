package eino

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ptt-copy-ai/internal/domain/service"
	"ptt-copy-ai/internal/workflow/node"
	apperrors "ptt-copy-ai/pkg/errors"
	"ptt-copy-ai/pkg/logger"
	"ptt-copy-ai/pkg/metrics"
)

const statusSuccess = "success"

type callKey struct{}

// call 一次模型调用在回调之间传递的状态
type call struct {
	start    time.Time
	workflow string
	provider string
	model    string
}

func (c *call) labels(modelName string) (string, string, string) {
	if modelName == "" {
		modelName = c.model
	}
	return c.workflow, c.provider, modelName
}

func callFromContext(ctx context.Context) *call {
	if c, ok := ctx.Value(callKey{}).(*call); ok {
		return c
	}
	return &call{
		workflow: service.WorkflowFromContext(ctx),
		provider: service.ProviderFromContext(ctx),
	}
}

// newChatModelCallbackHandler 每次模型调用：一个 span、次数/耗时/Token 指标
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: onStart,
		OnEnd:   onEnd,
		OnError: onError,
	}
}

func onStart(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
	c := &call{
		start:    time.Now(),
		workflow: service.WorkflowFromContext(ctx),
		provider: service.ProviderFromContext(ctx),
	}
	if input != nil && input.Config != nil {
		c.model = input.Config.Model
	}
	ctx = context.WithValue(ctx, callKey{}, c)

	attrs := []attribute.KeyValue{
		attribute.String("eino.workflow", c.workflow),
		attribute.String("llm.provider", c.provider),
		attribute.String("llm.model", c.model),
	}
	if info != nil {
		attrs = append(attrs, attribute.String("eino.component", info.Type))
	}
	ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
	return ctx
}

func onEnd(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
	c := callFromContext(ctx)
	var modelName string
	if output != nil && output.Config != nil {
		modelName = output.Config.Model
	}
	workflow, provider, modelName := c.labels(modelName)
	observe(c, workflow, provider, modelName, statusSuccess)

	span := trace.SpanFromContext(ctx)
	if output != nil && output.TokenUsage != nil {
		usage := output.TokenUsage
		metrics.LLMTokensUsed.WithLabelValues(workflow, provider, modelName, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(workflow, provider, modelName, "completion").Add(float64(usage.CompletionTokens))
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	span.End()
	return ctx
}

func onError(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
	c := callFromContext(ctx)
	workflow, provider, modelName := c.labels("")

	// status 为分类后的错误码
	code := apperrors.CodeOf(node.ClassifyLLMError(err))
	observe(c, workflow, provider, modelName, string(code))
	logger.Debug(ctx, "llm call failed",
		"provider", provider,
		"model", modelName,
		"error_code", string(code),
		"error", err.Error(),
	)

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
	return ctx
}

func observe(c *call, workflow, provider, modelName, status string) {
	metrics.LLMCallTotal.WithLabelValues(workflow, provider, modelName, status).Inc()
	if !c.start.IsZero() {
		metrics.LLMCallDuration.WithLabelValues(workflow, provider, modelName).Observe(time.Since(c.start).Seconds())
	}
}
