package llm

import (
	"context"
	"strings"

	"ptt-copy-ai/internal/config"
	"ptt-copy-ai/internal/workflow/node"
	apperrors "ptt-copy-ai/pkg/errors"
)

const generateContentAction = "generateContent"

// Lister 按 Provider 类型列出账号可用的模型
type Lister struct {
	clients *ClientPool
}

func NewLister(clients *ClientPool) *Lister {
	return &Lister{clients: clients}
}

// ListModels 按 Provider 返回的顺序列出模型名，不含 models/ 前缀。
// 不做字母排序：字母序会把 gemini-1.0 之类的旧模型排到 2.x 之前。
func (l *Lister) ListModels(ctx context.Context, provider string) ([]string, error) {
	pc, err := l.clients.Provider(provider)
	if err != nil {
		return nil, err
	}

	var names []string
	switch pc.Type {
	case config.ProviderTypeGemini:
		names, err = l.listGemini(ctx, provider)
	case config.ProviderTypeOpenAI:
		names, err = l.listOpenAI(ctx, provider)
	default:
		return nil, apperrors.New(apperrors.CodeConfigInvalid, "unsupported provider type").WithDetail(pc.Type)
	}
	if err != nil {
		return nil, node.ClassifyLLMError(wrapProviderError(err))
	}
	return names, nil
}

func (l *Lister) listGemini(ctx context.Context, provider string) ([]string, error) {
	client, err := l.clients.Gemini(ctx, provider)
	if err != nil {
		return nil, err
	}
	var names []string
	for m, err := range client.Models.All(ctx) {
		if err != nil {
			return nil, err
		}
		if m == nil || !supportsGenerate(m.SupportedActions) {
			continue
		}
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

func (l *Lister) listOpenAI(ctx context.Context, provider string) ([]string, error) {
	client, err := l.clients.OpenAI(provider)
	if err != nil {
		return nil, err
	}
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

// supportsGenerate 未声明能力的模型视为可用
func supportsGenerate(actions []string) bool {
	if len(actions) == 0 {
		return true
	}
	for _, a := range actions {
		if a == generateContentAction {
			return true
		}
	}
	return false
}
