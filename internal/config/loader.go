// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envPlaceholder 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPlaceholder = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 从 configs 目录加载配置
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "configs"
	}
	return LoadFrom(dir)
}

// LoadFrom 从指定目录加载配置
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 默认配置允许缺失，全部依赖默认值与环境变量
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	// 2. 环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := loadConfigFile(v, filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env)), true); err != nil {
		return nil, err
	}

	// 3. 环境变量直接覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
// 未定义且无默认值的变量保留原样，便于排查
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPlaceholder.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ptt-copy-ai")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "120s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.max_upload_bytes", 8<<20)

	// Redis，默认关闭
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 10)
	v.SetDefault("cache.redis.min_idle_conns", 1)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// LLM
	v.SetDefault("llm.default_provider", "gemini")
	v.SetDefault("llm.providers.gemini.type", ProviderTypeGemini)
	v.SetDefault("llm.providers.gemini.candidates", []string{"gemini-1.5-pro", "gemini-1.5-flash", "gemini-pro"})
	v.SetDefault("llm.providers.gemini.max_tokens", 2048)
	v.SetDefault("llm.providers.gemini.temperature", 0.9)
	v.SetDefault("llm.providers.gemini.timeout", "60s")
	v.SetDefault("llm.providers.gemini.safety_level", SafetyLevelMedium)
	v.SetDefault("llm.rate_limit.enabled", true)
	v.SetDefault("llm.rate_limit.requests_per_second", 1.0)
	v.SetDefault("llm.rate_limit.burst", 3)

	// 模型解析
	v.SetDefault("resolver.cache_ttl", "30m")
	v.SetDefault("resolver.cache_key_prefix", "ptt_copy:resolution")
	v.SetDefault("resolver.probe_timeout", "15s")
	v.SetDefault("resolver.probe_prompt", "ping")
	v.SetDefault("resolver.list_models", true)

	// 生成
	v.SetDefault("generation.sentinel", "[PTT_END]")
	v.SetDefault("generation.title_count", 5)
	v.SetDefault("generation.comment_count", 8)
	v.SetDefault("generation.body_runes", 150)
	v.SetDefault("generation.reference_max_runes", 6000)
	v.SetDefault("generation.title.temperature", 1.0)
	v.SetDefault("generation.opinion.temperature", 0.3)

	// 后处理
	v.SetDefault("postprocess.min_comment_runes", 3)
	v.SetDefault("postprocess.strip_question_marks", true)
	v.SetDefault("postprocess.body_strip_words", []string{"內文"})
	v.SetDefault("postprocess.label_policy", LabelPolicyRandom)
	v.SetDefault("postprocess.label_pool", []string{"推", "推", "→", "→", "噓", "推", "→"})

	// 内容来源
	v.SetDefault("content.reference_dir", "ref_files")
	v.SetDefault("content.reference_max_file_bytes", 2<<20)
	v.SetDefault("content.reference_max_rows", 200)
	v.SetDefault("content.reference_max_runes_per_file", 3000)

	// 凭证
	v.SetDefault("secrets.keyring_service", "ptt-copy-ai")

	// 入站限流
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_minute", 20)
	v.SetDefault("security.rate_limit.key_prefix", "ptt_copy:ratelimit")

	// 可观测性
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")
}
