//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ptt-copy-ai/internal/config"
)

// InitializeApp 初始化 HTTP 服务
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RedisSet,
		LLMSet,
		WorkflowSet,
		ApplicationSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeProbe 初始化模型探测工具，不启动 HTTP 层
func InitializeProbe(ctx context.Context, cfg *config.Config) (*Probe, func(), error) {
	wire.Build(
		RedisSet,
		LLMSet,
		wire.Struct(new(Probe), "*"),
	)
	return nil, nil, nil
}
