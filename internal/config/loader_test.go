package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ptt-copy-ai/pkg/errors"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("PTT_TEST_KEY", "secret")

	assert.Equal(t, "key: secret", expandEnv("key: ${PTT_TEST_KEY}"))
	assert.Equal(t, "key: secret", expandEnv("key: ${PTT_TEST_KEY:fallback}"))
	assert.Equal(t, "key: fallback", expandEnv("key: ${PTT_TEST_MISSING:fallback}"))
	assert.Equal(t, "key: ", expandEnv("key: ${PTT_TEST_MISSING:}"))
	assert.Equal(t, "key: ${PTT_TEST_MISSING}", expandEnv("key: ${PTT_TEST_MISSING}"))
}

func TestLoadFromMergesFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	t.Setenv("PTT_TEST_GEMINI_KEY", "abc123")

	base := `
llm:
  default_provider: gemini
  providers:
    gemini:
      type: gemini
      api_key: ${PTT_TEST_GEMINI_KEY:}
      candidates: [model-a, model-b]
resolver:
  cache_ttl: 5m
`
	overlay := `
generation:
  sentinel: "[END]"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(base), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.test.yaml"), []byte(overlay), 0o644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	gemini := cfg.LLM.Providers["gemini"]
	assert.Equal(t, "abc123", gemini.APIKey)
	assert.Equal(t, []string{"model-a", "model-b"}, gemini.Candidates)
	assert.Equal(t, 5*time.Minute, cfg.Resolver.CacheTTL)
	assert.Equal(t, "[END]", cfg.Generation.Sentinel)
	assert.Equal(t, 5, cfg.Generation.TitleCount)
	assert.Equal(t, 3, cfg.PostProcess.MinCommentRunes)
	assert.Equal(t, LabelPolicyRandom, cfg.PostProcess.LabelPolicy)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromMissingDirUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)
	assert.Equal(t, []string{"gemini-1.5-pro", "gemini-1.5-flash", "gemini-pro"}, cfg.LLM.Providers["gemini"].Candidates)
	assert.Equal(t, "[PTT_END]", cfg.Generation.Sentinel)
}

func validConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Providers: map[string]ProviderConfig{
				"gemini": {Type: ProviderTypeGemini, Candidates: []string{"m"}},
			},
		},
		Generation: GenerationConfig{
			Sentinel:          "[END]",
			TitleCount:        5,
			CommentCount:      8,
			BodyRunes:         150,
			ReferenceMaxRunes: 1000,
		},
		PostProcess: PostProcessConfig{
			MinCommentRunes: 3,
			LabelPolicy:     LabelPolicyRoundRobin,
			LabelPool:       []string{"推"},
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(c *Config){
		"missing default provider": func(c *Config) { c.LLM.DefaultProvider = "" },
		"unknown default provider": func(c *Config) { c.LLM.DefaultProvider = "claude" },
		"unsupported type": func(c *Config) {
			c.LLM.Providers["gemini"] = ProviderConfig{Type: "bard", Candidates: []string{"m"}}
		},
		"no candidates": func(c *Config) {
			c.LLM.Providers["gemini"] = ProviderConfig{Type: ProviderTypeGemini}
		},
		"empty sentinel":       func(c *Config) { c.Generation.Sentinel = " " },
		"unknown label policy": func(c *Config) { c.PostProcess.LabelPolicy = "sentiment" },
		"empty label pool":     func(c *Config) { c.PostProcess.LabelPool = nil },
		"bad safety level": func(c *Config) {
			c.LLM.Providers["gemini"] = ProviderConfig{Type: ProviderTypeGemini, Candidates: []string{"m"}, SafetyLevel: "max"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigInvalid))
		})
	}
}
