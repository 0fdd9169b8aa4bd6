// Package redis 提供基于 Redis 的共享缓存与限流实现
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"ptt-copy-ai/internal/config"
	"ptt-copy-ai/pkg/logger"
)

var tracer = otel.Tracer("redis")

const defaultPingTimeout = 5 * time.Second

// Client 进程内共享的 Redis 连接
type Client struct {
	rdb  *redis.Client
	addr string
}

// NewClient 连接 Redis，启动时 ping 失败即返回错误
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", addr, err)
	}
	logger.Info(ctx, "redis connected", "addr", addr, "db", cfg.DB)
	return &Client{rdb: rdb, addr: addr}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 就绪检查使用
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}

func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
