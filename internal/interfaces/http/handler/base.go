// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"ptt-copy-ai/internal/application/copywriter"
	"ptt-copy-ai/internal/domain/entity"
	"ptt-copy-ai/internal/interfaces/http/dto"
	"ptt-copy-ai/pkg/errors"
	"ptt-copy-ai/pkg/logger"
)

// CopywriterService 标题、内文与会话操作
type CopywriterService interface {
	Catalog() *entity.Catalog
	Snapshot() entity.Session
	Reset(ctx context.Context) entity.Session
	Select(ctx context.Context, title string) (entity.Session, error)
	GenerateTitles(ctx context.Context, req copywriter.TitleRequest) (*entity.TitleBatch, error)
	GeneratePost(ctx context.Context, title string) (*entity.GenerationResult, error)
	AddUploads(ctx context.Context, files []copywriter.Upload) ([]entity.ReferenceDoc, []entity.SkippedReference, error)
	ClearUploads(ctx context.Context)
}

// ModelResolver 模型解析
type ModelResolver interface {
	Resolve(ctx context.Context, provider string) (*entity.Resolution, error)
	Refresh(ctx context.Context, provider string) (*entity.Resolution, error)
	Current(ctx context.Context, provider string) (*entity.Resolution, bool, error)
}

// OpinionAnalyzer 口碑分析
type OpinionAnalyzer interface {
	Analyze(ctx context.Context, comments string) (*entity.OpinionReport, error)
}

var _ CopywriterService = (*copywriter.Service)(nil)

// respondError 应用错误按错误码渲染，其余错误记录后返回 500
func respondError(c *gin.Context, op string, err error) {
	ctx := c.Request.Context()
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		if appErr.HTTPStatus >= 500 {
			logger.Error(ctx, op+" failed", err)
		} else {
			logger.Warn(ctx, op+" rejected", "error", err.Error())
		}
		dto.AppError(c, appErr)
		return
	}
	logger.Error(ctx, op+" failed", err)
	dto.AppError(c, errors.Wrap(err, errors.CodeInternalError, op+" failed"))
}
