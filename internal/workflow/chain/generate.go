package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "ptt-copy-ai/internal/domain/service"
	wfmodel "ptt-copy-ai/internal/workflow/model"
	wfnode "ptt-copy-ai/internal/workflow/node"
	workflowport "ptt-copy-ai/internal/workflow/port"
	workflowprompt "ptt-copy-ai/internal/workflow/prompt"
	apperrors "ptt-copy-ai/pkg/errors"
	"ptt-copy-ai/pkg/logger"
)

// renderFunc 把工作流输入渲染成 prompt 与解码参数
type renderFunc[I any] func(ctx context.Context, in I) (*workflowprompt.Rendered, wfmodel.GenerateOptions, error)

type generationState struct {
	Options  wfmodel.GenerateOptions
	Rendered *workflowprompt.Rendered
	OutMsg   *schema.Message
}

// generation 单轮 template -> llm -> finalize 链，编译一次后复用
type generation[I any] struct {
	name     string
	workflow string
	factory  workflowport.ChatModelFactory
	render   renderFunc[I]

	once     sync.Once
	runnable compose.Runnable[I, *wfmodel.GenerateOutput]
	err      error
}

func newGeneration[I any](name, workflow string, factory workflowport.ChatModelFactory, render renderFunc[I]) *generation[I] {
	return &generation[I]{name: name, workflow: workflow, factory: factory, render: render}
}

func (g *generation[I]) invoke(ctx context.Context, in I) (*wfmodel.GenerateOutput, error) {
	if g.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	g.once.Do(func() {
		g.runnable, g.err = g.compile(context.Background())
	})
	if g.err != nil {
		return nil, g.err
	}
	out, err := g.runnable.Invoke(ctx, in)
	if err != nil {
		// compose 会给节点错误加上路径前缀，这里还原为应用错误
		if apperrors.IsAppError(err) {
			return nil, apperrors.AsAppError(err)
		}
		return nil, err
	}
	return out, nil
}

func (g *generation[I]) compile(ctx context.Context) (compose.Runnable[I, *wfmodel.GenerateOutput], error) {
	chain := compose.NewChain[I, *wfmodel.GenerateOutput]()

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, in I) (*generationState, error) {
			rendered, opts, err := g.render(ctx, in)
			if err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid generation input")
			}
			if strings.TrimSpace(opts.Provider) == "" {
				return nil, apperrors.New(apperrors.CodeInvalidParam, "provider is required")
			}
			return &generationState{Options: opts, Rendered: rendered}, nil
		}),
		compose.WithNodeName(g.name+".template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generationState) (*generationState, error) {
			if st == nil || st.Rendered == nil {
				return nil, fmt.Errorf("state is nil")
			}
			provider := strings.TrimSpace(st.Options.Provider)
			ctx = llmctx.WithWorkflowProvider(ctx, g.workflow, provider)
			chatModel, err := g.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Rendered.Messages, buildModelOptions(st.Options)...)
			if err != nil {
				return nil, wfnode.ClassifyLLMError(err)
			}
			if outMsg == nil {
				return nil, apperrors.New(apperrors.CodeLLMProviderError, "empty llm response")
			}
			if reason := finishReason(outMsg); wfnode.IsSafetyFinishReason(reason) {
				logger.Warn(ctx, "llm response blocked by safety filter",
					"model", st.Options.Model,
					"finish_reason", reason,
				)
				return nil, wfnode.SafetyBlocked(reason)
			}
			if strings.TrimSpace(outMsg.Content) == "" {
				return nil, apperrors.New(apperrors.CodeLLMProviderError, "empty llm response").
					WithDetail("finish_reason=" + finishReason(outMsg))
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName(g.name+".llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *generationState) (*wfmodel.GenerateOutput, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			out := &wfmodel.GenerateOutput{
				Content:            st.OutMsg.Content,
				FinishReason:       finishReason(st.OutMsg),
				ReferenceTruncated: st.Rendered.ReferenceTruncated,
				Meta: wfmodel.LLMUsageMeta{
					Provider:    strings.TrimSpace(st.Options.Provider),
					Model:       strings.TrimSpace(st.Options.Model),
					GeneratedAt: time.Now(),
				},
			}
			if st.OutMsg.ResponseMeta != nil && st.OutMsg.ResponseMeta.Usage != nil {
				out.Meta.PromptTokens = st.OutMsg.ResponseMeta.Usage.PromptTokens
				out.Meta.CompletionTokens = st.OutMsg.ResponseMeta.Usage.CompletionTokens
			}
			return out, nil
		}),
		compose.WithNodeName(g.name+".finalize"),
	)

	return chain.Compile(ctx)
}

func buildModelOptions(in wfmodel.GenerateOptions) []model.Option {
	opts := make([]model.Option, 0, 3)
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if m := strings.TrimSpace(in.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}
	return opts
}

func finishReason(msg *schema.Message) string {
	if msg == nil || msg.ResponseMeta == nil {
		return ""
	}
	return msg.ResponseMeta.FinishReason
}
