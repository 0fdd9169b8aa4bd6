package chain

import (
	"context"
	"fmt"

	llmctx "ptt-copy-ai/internal/domain/service"
	wfmodel "ptt-copy-ai/internal/workflow/model"
	workflowport "ptt-copy-ai/internal/workflow/port"
	workflowprompt "ptt-copy-ai/internal/workflow/prompt"
)

// OpinionChain 口碑分析的两步调用：先分类摘要，再写综合分析
type OpinionChain struct {
	summary  *generation[*wfmodel.OpinionSummaryInput]
	analysis *generation[*wfmodel.OpinionAnalysisInput]
}

func NewOpinionChain(factory workflowport.ChatModelFactory, builder *workflowprompt.Builder) *OpinionChain {
	if builder == nil {
		builder = workflowprompt.NewBuilder(nil)
	}
	renderSummary := func(ctx context.Context, in *wfmodel.OpinionSummaryInput) (*workflowprompt.Rendered, wfmodel.GenerateOptions, error) {
		if in == nil {
			return nil, wfmodel.GenerateOptions{}, fmt.Errorf("input is nil")
		}
		r, err := builder.OpinionSummary(ctx, in)
		return r, in.Options, err
	}
	renderAnalysis := func(ctx context.Context, in *wfmodel.OpinionAnalysisInput) (*workflowprompt.Rendered, wfmodel.GenerateOptions, error) {
		if in == nil {
			return nil, wfmodel.GenerateOptions{}, fmt.Errorf("input is nil")
		}
		r, err := builder.OpinionAnalysis(ctx, in)
		return r, in.Options, err
	}
	return &OpinionChain{
		summary:  newGeneration("opinion_summary", llmctx.WorkflowOpinionSummary, factory, renderSummary),
		analysis: newGeneration("opinion_analysis", llmctx.WorkflowOpinionAnalysis, factory, renderAnalysis),
	}
}

func (c *OpinionChain) Summarize(ctx context.Context, in *wfmodel.OpinionSummaryInput) (*wfmodel.GenerateOutput, error) {
	if c == nil || c.summary == nil {
		return nil, fmt.Errorf("opinion chain not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	return c.summary.invoke(ctx, in)
}

func (c *OpinionChain) Analyze(ctx context.Context, in *wfmodel.OpinionAnalysisInput) (*wfmodel.GenerateOutput, error) {
	if c == nil || c.analysis == nil {
		return nil, fmt.Errorf("opinion chain not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	return c.analysis.invoke(ctx, in)
}
