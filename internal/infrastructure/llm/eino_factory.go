package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"ptt-copy-ai/internal/config"
)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config  *config.LLMConfig
	clients *ClientPool
	models  map[string]model.BaseChatModel
	mu      sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config, clients *ClientPool) *EinoFactory {
	return &EinoFactory{
		config:  &cfg.LLM,
		clients: clients,
		models:  make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, err := f.clients.Provider(name)
	if err != nil {
		return nil, err
	}

	var chatModel model.BaseChatModel
	switch providerCfg.Type {
	case config.ProviderTypeGemini:
		chatModel, err = f.newGemini(ctx, name, providerCfg)
	case config.ProviderTypeOpenAI:
		chatModel, err = f.newOpenAI(ctx, providerCfg)
	default:
		err = fmt.Errorf("unsupported provider type %q", providerCfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	chatModel = newLimitedModel(chatModel, name, f.limiterFor(), providerCfg.Timeout)
	f.models[name] = chatModel
	return chatModel, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

func (f *EinoFactory) newGemini(ctx context.Context, name string, pc config.ProviderConfig) (model.BaseChatModel, error) {
	client, err := f.clients.Gemini(ctx, name)
	if err != nil {
		return nil, err
	}
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          defaultModel(pc),
		MaxTokens:      ptrPositiveInt(pc.MaxTokens),
		Temperature:    ptrFloat32(float32(pc.Temperature)),
		SafetySettings: safetySettings(pc.SafetyLevel),
	})
}

func (f *EinoFactory) newOpenAI(ctx context.Context, pc config.ProviderConfig) (model.BaseChatModel, error) {
	// 使用 Eino 的 OpenAI 适配器
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      pc.APIKey,
		BaseURL:     pc.BaseURL,
		Model:       defaultModel(pc),
		MaxTokens:   ptrPositiveInt(pc.MaxTokens),
		Temperature: ptrFloat32(float32(pc.Temperature)),
		Timeout:     pc.Timeout,
	})
}

// limiterFor 所有 Provider 共用同一个出站限流器，未启用时返回 nil
func (f *EinoFactory) limiterFor() *rate.Limiter {
	rl := f.config.RateLimit
	if !rl.Enabled || rl.RequestsPerSecond <= 0 {
		return nil
	}
	burst := rl.Burst
	if burst <= 0 {
		burst = 1
	}
	return sharedLimiter(rate.Limit(rl.RequestsPerSecond), burst)
}

var (
	limiterOnce sync.Once
	limiter     *rate.Limiter
)

func sharedLimiter(r rate.Limit, burst int) *rate.Limiter {
	limiterOnce.Do(func() {
		limiter = rate.NewLimiter(r, burst)
	})
	return limiter
}

// defaultModel 未通过 WithModel 指定时使用阶梯中的第一个
func defaultModel(pc config.ProviderConfig) string {
	if len(pc.Candidates) == 0 {
		return ""
	}
	return pc.Candidates[0]
}

func safetySettings(level string) []*genai.SafetySetting {
	var threshold genai.HarmBlockThreshold
	switch level {
	case config.SafetyLevelNone:
		threshold = genai.HarmBlockThresholdBlockNone
	case config.SafetyLevelLow:
		threshold = genai.HarmBlockThresholdBlockOnlyHigh
	case config.SafetyLevelHigh:
		threshold = genai.HarmBlockThresholdBlockLowAndAbove
	case config.SafetyLevelMedium:
		threshold = genai.HarmBlockThresholdBlockMediumAndAbove
	default:
		return nil
	}
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	out := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		out = append(out, &genai.SafetySetting{Category: c, Threshold: threshold})
	}
	return out
}

func ptrFloat32(f float32) *float32 {
	return &f
}

func ptrPositiveInt(i int) *int {
	if i <= 0 {
		return nil
	}
	return &i
}
