// Package secrets 从系统钥匙串读取 Provider 凭证
package secrets

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/99designs/keyring"

	"ptt-copy-ai/internal/config"
	apperrors "ptt-copy-ai/pkg/errors"
	"ptt-copy-ai/pkg/logger"
)

// Getter 按 Provider 名读取凭证；不存在时返回空串
type Getter interface {
	Get(name string) (string, error)
}

// Store 钥匙串封装
type Store struct {
	ring keyring.Keyring
}

// Open 打开钥匙串；backend 为空时由 keyring 自动选择
func Open(cfg config.SecretsConfig) (*Store, error) {
	kc := keyring.Config{
		ServiceName: cfg.KeyringService,
		FileDir:     cfg.KeyringFileDir,
		// file 后端的口令从环境变量读取，避免交互提示
		FilePasswordFunc: keyring.FixedStringPrompt(os.Getenv("KEYRING_PASSWORD")),
	}
	if b := strings.TrimSpace(cfg.KeyringBackend); b != "" {
		kc.AllowedBackends = []keyring.BackendType{keyring.BackendType(b)}
	}
	ring, err := keyring.Open(kc)
	if err != nil {
		return nil, err
	}
	return &Store{ring: ring}, nil
}

func (s *Store) Get(name string) (string, error) {
	item, err := s.ring.Get(name)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(item.Data)), nil
}

func (s *Store) Set(name, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("credential is empty")
	}
	return s.ring.Set(keyring.Item{
		Key:         name,
		Data:        []byte(value),
		Label:       name + " API key",
		Description: "API key used by " + name + " provider",
	})
}

// ResolveCredentials 为未配置 api_key 的 Provider 从钥匙串补全凭证
//
// 默认 Provider 缺少凭证时返回配置错误；其他 Provider 只记录警告。
func ResolveCredentials(ctx context.Context, cfg *config.Config, store Getter) error {
	defaultName, _, err := cfg.DefaultProviderConfig()
	if err != nil {
		return err
	}
	for name, p := range cfg.LLM.Providers {
		if strings.TrimSpace(p.APIKey) != "" {
			continue
		}
		if store != nil {
			key, err := store.Get(name)
			if err != nil {
				logger.Warn(ctx, "failed to read credential from keyring", "provider", name, "error", err.Error())
			}
			if key != "" {
				p.APIKey = key
				cfg.LLM.Providers[name] = p
				logger.Info(ctx, "credential loaded from keyring", "provider", name)
				continue
			}
		}
		if name == defaultName {
			return apperrors.New(apperrors.CodeConfigInvalid, "missing api credential").
				WithDetail("set llm.providers." + name + ".api_key or store it in the keyring")
		}
		logger.Warn(ctx, "provider has no credential", "provider", name)
	}
	return nil
}
