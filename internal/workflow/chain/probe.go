package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	llmctx "ptt-copy-ai/internal/domain/service"
	wfnode "ptt-copy-ai/internal/workflow/node"
	workflowport "ptt-copy-ai/internal/workflow/port"
)

const defaultProbePrompt = "ping"

// ProbeChain 以最小请求确认模型可调用；不检查回复内容
type ProbeChain struct {
	factory workflowport.ChatModelFactory
	prompt  string
	timeout time.Duration
}

func NewProbeChain(factory workflowport.ChatModelFactory, prompt string, timeout time.Duration) *ProbeChain {
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultProbePrompt
	}
	return &ProbeChain{factory: factory, prompt: prompt, timeout: timeout}
}

func (c *ProbeChain) Probe(ctx context.Context, provider, modelName string) error {
	if c == nil || c.factory == nil {
		return fmt.Errorf("llm factory not configured")
	}
	provider = strings.TrimSpace(provider)
	modelName = strings.TrimSpace(modelName)
	if provider == "" || modelName == "" {
		return fmt.Errorf("provider and model are required")
	}

	ctx = llmctx.WithWorkflowProvider(ctx, llmctx.WorkflowModelProbe, provider)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	chatModel, err := c.factory.Get(ctx, provider)
	if err != nil {
		return err
	}
	_, err = chatModel.Generate(ctx,
		[]*schema.Message{schema.UserMessage(c.prompt)},
		model.WithModel(modelName),
		model.WithMaxTokens(1),
	)
	if err != nil {
		return wfnode.ClassifyLLMError(err)
	}
	return nil
}
