// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"strings"
	"time"

	apperrors "ptt-copy-ai/pkg/errors"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Resolver      ResolverConfig      `yaml:"resolver" mapstructure:"resolver"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	PostProcess   PostProcessConfig   `yaml:"postprocess" mapstructure:"postprocess"`
	Content       ContentConfig       `yaml:"content" mapstructure:"content"`
	Secrets       SecretsConfig       `yaml:"secrets" mapstructure:"secrets"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`
	Port           int           `yaml:"port" mapstructure:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置，未启用时使用进程内缓存
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// Provider 类型
const (
	ProviderTypeGemini = "gemini"
	ProviderTypeOpenAI = "openai"
)

// 内容过滤强度
const (
	SafetyLevelNone   = "none"
	SafetyLevelLow    = "low"
	SafetyLevelMedium = "medium"
	SafetyLevelHigh   = "high"
)

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	RateLimit       LLMRateLimitConfig        `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	Type string `yaml:"type" mapstructure:"type"`
	// APIKey 为空时从系统钥匙串读取
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Candidates 按能力从高到低排列的候选模型
	Candidates    []string      `yaml:"candidates" mapstructure:"candidates"`
	PreferCheaper bool          `yaml:"prefer_cheaper" mapstructure:"prefer_cheaper"`
	MaxTokens     int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature   float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	SafetyLevel   string        `yaml:"safety_level" mapstructure:"safety_level"`
}

// LLMRateLimitConfig 出站调用限流
type LLMRateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ResolverConfig 模型解析配置
type ResolverConfig struct {
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	CacheKeyPrefix string        `yaml:"cache_key_prefix" mapstructure:"cache_key_prefix"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	ProbePrompt    string        `yaml:"probe_prompt" mapstructure:"probe_prompt"`
	ListModels     bool          `yaml:"list_models" mapstructure:"list_models"`
}

// GenerationConfig 生成参数
type GenerationConfig struct {
	Sentinel          string          `yaml:"sentinel" mapstructure:"sentinel"`
	TitleCount        int             `yaml:"title_count" mapstructure:"title_count"`
	CommentCount      int             `yaml:"comment_count" mapstructure:"comment_count"`
	BodyRunes         int             `yaml:"body_runes" mapstructure:"body_runes"`
	ReferenceMaxRunes int             `yaml:"reference_max_runes" mapstructure:"reference_max_runes"`
	Title             DecodingOptions `yaml:"title" mapstructure:"title"`
	Post              DecodingOptions `yaml:"post" mapstructure:"post"`
	Opinion           DecodingOptions `yaml:"opinion" mapstructure:"opinion"`
}

// DecodingOptions 单个工作流的解码参数，零值表示沿用 Provider 配置
type DecodingOptions struct {
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// 推文标签分配策略
const (
	LabelPolicyRandom     = "random"
	LabelPolicyRoundRobin = "round_robin"
	LabelPolicyNone       = "none"
)

// PostProcessConfig 后处理策略
type PostProcessConfig struct {
	MinCommentRunes    int      `yaml:"min_comment_runes" mapstructure:"min_comment_runes"`
	StripQuestionMarks bool     `yaml:"strip_question_marks" mapstructure:"strip_question_marks"`
	BodyStripWords     []string `yaml:"body_strip_words" mapstructure:"body_strip_words"`
	LabelPolicy        string   `yaml:"label_policy" mapstructure:"label_policy"`
	LabelPool          []string `yaml:"label_pool" mapstructure:"label_pool"`
}

// ContentConfig 内容来源配置
type ContentConfig struct {
	CatalogPath              string `yaml:"catalog_path" mapstructure:"catalog_path"`
	HistoryFile              string `yaml:"history_file" mapstructure:"history_file"`
	ReferenceDir             string `yaml:"reference_dir" mapstructure:"reference_dir"`
	ReferenceMaxFileBytes    int64  `yaml:"reference_max_file_bytes" mapstructure:"reference_max_file_bytes"`
	ReferenceMaxRows         int    `yaml:"reference_max_rows" mapstructure:"reference_max_rows"`
	ReferenceMaxRunesPerFile int    `yaml:"reference_max_runes_per_file" mapstructure:"reference_max_runes_per_file"`
}

// SecretsConfig 凭证存储配置
type SecretsConfig struct {
	KeyringService string `yaml:"keyring_service" mapstructure:"keyring_service"`
	// KeyringBackend 为空时由 keyring 自动选择
	KeyringBackend string `yaml:"keyring_backend" mapstructure:"keyring_backend"`
	KeyringFileDir string `yaml:"keyring_file_dir" mapstructure:"keyring_file_dir"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig 生成类接口的入站限流，Redis 启用时使用滑动窗口
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	KeyPrefix         string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// DefaultProviderConfig 返回默认 Provider 的名称与配置
func (c *Config) DefaultProviderConfig() (string, ProviderConfig, error) {
	name := strings.TrimSpace(c.LLM.DefaultProvider)
	if name == "" {
		return "", ProviderConfig{}, apperrors.New(apperrors.CodeConfigInvalid, "llm.default_provider is empty")
	}
	p, ok := c.LLM.Providers[name]
	if !ok {
		return "", ProviderConfig{}, apperrors.New(apperrors.CodeConfigInvalid, "llm provider not configured").
			WithDetail(name)
	}
	return name, p, nil
}

// Validate 校验配置，返回的错误均为配置类错误
func (c *Config) Validate() error {
	name, p, err := c.DefaultProviderConfig()
	if err != nil {
		return err
	}

	invalid := func(format string, args ...any) error {
		return apperrors.New(apperrors.CodeConfigInvalid, "invalid configuration").
			WithDetail(fmt.Sprintf(format, args...))
	}

	for pname, pc := range c.LLM.Providers {
		switch pc.Type {
		case ProviderTypeGemini, ProviderTypeOpenAI:
		default:
			return invalid("llm.providers.%s.type %q is not supported", pname, pc.Type)
		}
		switch pc.SafetyLevel {
		case "", SafetyLevelNone, SafetyLevelLow, SafetyLevelMedium, SafetyLevelHigh:
		default:
			return invalid("llm.providers.%s.safety_level %q is not supported", pname, pc.SafetyLevel)
		}
	}
	if len(p.Candidates) == 0 {
		return invalid("llm.providers.%s.candidates must not be empty", name)
	}
	if strings.TrimSpace(c.Generation.Sentinel) == "" {
		return invalid("generation.sentinel must not be empty")
	}
	if c.Generation.TitleCount <= 0 || c.Generation.CommentCount <= 0 || c.Generation.BodyRunes <= 0 {
		return invalid("generation counts must be positive")
	}
	if c.Generation.ReferenceMaxRunes <= 0 {
		return invalid("generation.reference_max_runes must be positive")
	}
	if c.PostProcess.MinCommentRunes < 0 {
		return invalid("postprocess.min_comment_runes must not be negative")
	}
	switch c.PostProcess.LabelPolicy {
	case LabelPolicyRandom, LabelPolicyRoundRobin, LabelPolicyNone:
	default:
		return invalid("postprocess.label_policy %q is not supported", c.PostProcess.LabelPolicy)
	}
	if c.PostProcess.LabelPolicy != LabelPolicyNone && len(c.PostProcess.LabelPool) == 0 {
		return invalid("postprocess.label_pool must not be empty")
	}
	return nil
}
