package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"ptt-copy-ai/internal/domain/entity"
)

// ChatModelFactory 定义工作流层对 LLM ChatModel 的最小依赖（port）。
type ChatModelFactory interface {
	Get(ctx context.Context, provider string) (model.BaseChatModel, error)
}

// ModelResolver 返回当前可调用的模型；配额耗尽后由调用方 Invalidate 触发重新探测
type ModelResolver interface {
	Resolve(ctx context.Context, provider string) (*entity.Resolution, error)
	Invalidate(ctx context.Context, provider string) error
}

// ModelLister 列出 Provider 当前可调用的生成模型
type ModelLister interface {
	ListModels(ctx context.Context, provider string) ([]string, error)
}
