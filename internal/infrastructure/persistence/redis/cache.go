package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"ptt-copy-ai/internal/domain/entity"
	"ptt-copy-ai/internal/domain/repository"
)

var cacheTracer = otel.Tracer("redis.cache")

var _ repository.ResolutionCache = (*ResolutionCache)(nil)

// ResolutionCache 多实例共享的模型解析缓存
type ResolutionCache struct {
	client *Client
	group  singleflight.Group
}

func NewResolutionCache(client *Client) *ResolutionCache {
	return &ResolutionCache{client: client}
}

func (c *ResolutionCache) Peek(ctx context.Context, key string) (*entity.Resolution, bool, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.Peek",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	res, err := c.get(ctx, key)
	if err != nil {
		if isMiss(err) {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return nil, false, nil
		}
		span.RecordError(err)
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return res, true, nil
}

// GetOrLoad Read-Through，使用 singleflight 合并并发探测，失败结果不写入缓存
func (c *ResolutionCache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader repository.ResolutionLoader) (*entity.Resolution, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	res, err := c.get(ctx, key)
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return res, nil
	}
	if !isMiss(err) {
		// 缓存不可用时直接探测
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// 再次检查缓存（可能已被其他实例填充）
		if res, err := c.get(ctx, key); err == nil {
			return res, nil
		}

		res, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		bytes, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal resolution: %w", err)
		}
		if err := c.client.rdb.Set(ctx, key, bytes, ttl).Err(); err != nil {
			// 缓存写入失败不影响返回结果
			span.RecordError(err)
		}
		return res, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := *v.(*entity.Resolution)
	return &out, nil
}

func (c *ResolutionCache) Invalidate(ctx context.Context, key string) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Invalidate",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if err := c.client.rdb.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (c *ResolutionCache) get(ctx context.Context, key string) (*entity.Resolution, error) {
	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var res entity.Resolution
	if err := json.Unmarshal(val, &res); err != nil {
		// 结构不兼容的旧值视为未命中
		return nil, redis.Nil
	}
	return &res, nil
}
