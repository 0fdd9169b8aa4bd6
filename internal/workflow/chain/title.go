package chain

import (
	"context"
	"fmt"

	llmctx "ptt-copy-ai/internal/domain/service"
	wfmodel "ptt-copy-ai/internal/workflow/model"
	workflowport "ptt-copy-ai/internal/workflow/port"
	workflowprompt "ptt-copy-ai/internal/workflow/prompt"
)

// TitleChain 生成候选标题，输出为原始文本，逐行解析交给后处理
type TitleChain struct {
	gen *generation[*wfmodel.TitleGenerateInput]
}

func NewTitleChain(factory workflowport.ChatModelFactory, builder *workflowprompt.Builder) *TitleChain {
	if builder == nil {
		builder = workflowprompt.NewBuilder(nil)
	}
	render := func(ctx context.Context, in *wfmodel.TitleGenerateInput) (*workflowprompt.Rendered, wfmodel.GenerateOptions, error) {
		if in == nil {
			return nil, wfmodel.GenerateOptions{}, fmt.Errorf("input is nil")
		}
		r, err := builder.Titles(ctx, in)
		return r, in.Options, err
	}
	return &TitleChain{gen: newGeneration("title", llmctx.WorkflowTitleGenerate, factory, render)}
}

func (c *TitleChain) Invoke(ctx context.Context, in *wfmodel.TitleGenerateInput) (*wfmodel.GenerateOutput, error) {
	if c == nil || c.gen == nil {
		return nil, fmt.Errorf("title chain not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	return c.gen.invoke(ctx, in)
}
