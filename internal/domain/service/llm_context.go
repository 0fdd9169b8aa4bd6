// Package service 提供跨层共享的领域上下文
package service

import (
	"context"
	"strings"

	"ptt-copy-ai/pkg/logger"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
)

// 工作流名称，用于指标与追踪标签
const (
	WorkflowTitleGenerate   = "title_generate"
	WorkflowPostGenerate    = "post_generate"
	WorkflowModelProbe      = "model_probe"
	WorkflowOpinionSummary  = "opinion_summary"
	WorkflowOpinionAnalysis = "opinion_analysis"
)

const unknown = "unknown"

func WithWorkflow(ctx context.Context, workflow string) context.Context {
	if ctx == nil {
		return nil
	}
	w := strings.TrimSpace(workflow)
	if w == "" {
		return ctx
	}
	ctx = logger.WithContext(ctx, logger.WorkflowKey, w)
	return context.WithValue(ctx, llmCtxKeyWorkflow, w)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

// WithWorkflowProvider 同时写入工作流与 Provider
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

func WorkflowFromContext(ctx context.Context) string {
	return stringValue(ctx, llmCtxKeyWorkflow)
}

func ProviderFromContext(ctx context.Context) string {
	return stringValue(ctx, llmCtxKeyProvider)
}

func stringValue(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return unknown
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return unknown
	}
	return strings.TrimSpace(s)
}
