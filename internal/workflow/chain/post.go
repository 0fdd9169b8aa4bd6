package chain

import (
	"context"
	"fmt"

	llmctx "ptt-copy-ai/internal/domain/service"
	wfmodel "ptt-copy-ai/internal/workflow/model"
	workflowport "ptt-copy-ai/internal/workflow/port"
	workflowprompt "ptt-copy-ai/internal/workflow/prompt"
)

// PostChain 生成内文与推文，回复以分隔符切分
type PostChain struct {
	gen *generation[*wfmodel.PostGenerateInput]
}

func NewPostChain(factory workflowport.ChatModelFactory, builder *workflowprompt.Builder) *PostChain {
	if builder == nil {
		builder = workflowprompt.NewBuilder(nil)
	}
	render := func(ctx context.Context, in *wfmodel.PostGenerateInput) (*workflowprompt.Rendered, wfmodel.GenerateOptions, error) {
		if in == nil {
			return nil, wfmodel.GenerateOptions{}, fmt.Errorf("input is nil")
		}
		r, err := builder.Post(ctx, in)
		return r, in.Options, err
	}
	return &PostChain{gen: newGeneration("post", llmctx.WorkflowPostGenerate, factory, render)}
}

func (c *PostChain) Invoke(ctx context.Context, in *wfmodel.PostGenerateInput) (*wfmodel.GenerateOutput, error) {
	if c == nil || c.gen == nil {
		return nil, fmt.Errorf("post chain not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	return c.gen.invoke(ctx, in)
}
