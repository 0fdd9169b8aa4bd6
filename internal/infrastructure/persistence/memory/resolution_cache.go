// Package memory 提供进程内缓存实现，未启用 Redis 时使用
package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ptt-copy-ai/internal/domain/entity"
	"ptt-copy-ai/internal/domain/repository"
)

var _ repository.ResolutionCache = (*ResolutionCache)(nil)

type resolutionEntry struct {
	value     entity.Resolution
	expiresAt time.Time
}

// ResolutionCache 带过期时间的进程内解析缓存
type ResolutionCache struct {
	mu      sync.RWMutex
	entries map[string]resolutionEntry
	group   singleflight.Group
	now     func() time.Time
}

func NewResolutionCache() *ResolutionCache {
	return &ResolutionCache{
		entries: make(map[string]resolutionEntry),
		now:     time.Now,
	}
}

func (c *ResolutionCache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader repository.ResolutionLoader) (*entity.Resolution, error) {
	if res, ok := c.get(key); ok {
		return res, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if res, ok := c.get(key); ok {
			return res, nil
		}
		res, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = resolutionEntry{value: *res, expiresAt: c.now().Add(ttl)}
		c.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*entity.Resolution)
	return &res, nil
}

func (c *ResolutionCache) Peek(_ context.Context, key string) (*entity.Resolution, bool, error) {
	res, ok := c.get(key)
	return res, ok, nil
}

func (c *ResolutionCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *ResolutionCache) get(key string) (*entity.Resolution, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	res := e.value
	return &res, true
}
