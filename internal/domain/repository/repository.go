// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"ptt-copy-ai/internal/domain/entity"
)

// ResolutionLoader 在缓存未命中时执行真实的模型解析
type ResolutionLoader func(ctx context.Context) (*entity.Resolution, error)

// ResolutionCache 模型解析结果缓存
//
// 实现需合并同一 key 的并发加载，且不缓存失败结果。
type ResolutionCache interface {
	// GetOrLoad 命中则直接返回，否则调用 loader 并按 ttl 缓存
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader ResolutionLoader) (*entity.Resolution, error)

	// Peek 只读缓存，不触发加载
	Peek(ctx context.Context, key string) (*entity.Resolution, bool, error)

	// Invalidate 删除缓存，下次访问重新探测
	Invalidate(ctx context.Context, key string) error
}

// HeadlineBlacklist 历史标题去重黑名单，只读
type HeadlineBlacklist interface {
	// Contains 精确匹配
	Contains(headline string) bool

	// Len 条目数
	Len() int
}
