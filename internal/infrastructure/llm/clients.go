package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"ptt-copy-ai/internal/config"
	apperrors "ptt-copy-ai/pkg/errors"
)

// ClientPool 按 Provider 惰性创建 SDK 客户端，生成与模型列表共用
type ClientPool struct {
	config *config.LLMConfig

	mu     sync.Mutex
	gemini map[string]*genai.Client
	openai map[string]*openai.Client
}

func NewClientPool(cfg *config.Config) *ClientPool {
	return &ClientPool{
		config: &cfg.LLM,
		gemini: make(map[string]*genai.Client),
		openai: make(map[string]*openai.Client),
	}
}

// Provider 返回 Provider 配置，凭证缺失时返回配置错误
func (p *ClientPool) Provider(name string) (config.ProviderConfig, error) {
	if name == "" {
		name = p.config.DefaultProvider
	}
	pc, ok := p.config.Providers[name]
	if !ok {
		return config.ProviderConfig{}, apperrors.New(apperrors.CodeConfigInvalid, "llm provider not configured").WithDetail(name)
	}
	if strings.TrimSpace(pc.APIKey) == "" {
		return config.ProviderConfig{}, apperrors.New(apperrors.CodeConfigInvalid, "missing api credential").WithDetail(name)
	}
	return pc, nil
}

func (p *ClientPool) Gemini(ctx context.Context, name string) (*genai.Client, error) {
	pc, err := p.Provider(name)
	if err != nil {
		return nil, err
	}
	if pc.Type != config.ProviderTypeGemini {
		return nil, fmt.Errorf("provider %s is not a gemini provider", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.gemini[name]; ok {
		return c, nil
	}
	cc := &genai.ClientConfig{
		APIKey:  pc.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if pc.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: pc.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client for %s: %w", name, err)
	}
	p.gemini[name] = c
	return c, nil
}

func (p *ClientPool) OpenAI(name string) (*openai.Client, error) {
	pc, err := p.Provider(name)
	if err != nil {
		return nil, err
	}
	if pc.Type != config.ProviderTypeOpenAI {
		return nil, fmt.Errorf("provider %s is not an openai provider", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.openai[name]; ok {
		return c, nil
	}
	opts := []option.RequestOption{option.WithAPIKey(pc.APIKey)}
	if pc.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(pc.BaseURL))
	}
	c := openai.NewClient(opts...)
	p.openai[name] = &c
	return &c, nil
}
