package handler

import (
	"github.com/gin-gonic/gin"

	"ptt-copy-ai/internal/interfaces/http/dto"
)

// ModelHandler 模型解析处理器
type ModelHandler struct {
	resolver ModelResolver
	provider string
}

func NewModelHandler(resolver ModelResolver, provider string) *ModelHandler {
	return &ModelHandler{resolver: resolver, provider: provider}
}

// GetResolution 返回当前解析结果，未缓存时按需解析
// @Summary 当前模型
// @Tags Models
// @Produce json
// @Success 200 {object} dto.Response[entity.Resolution]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/models [get]
func (h *ModelHandler) GetResolution(c *gin.Context) {
	res, err := h.resolver.Resolve(c.Request.Context(), h.provider)
	if err != nil {
		respondError(c, "resolve model", err)
		return
	}
	dto.Success(c, res)
}

// Refresh 丢弃缓存并重新探测
// @Summary 重新解析模型
// @Tags Models
// @Produce json
// @Router /v1/models/resolve [post]
func (h *ModelHandler) Refresh(c *gin.Context) {
	res, err := h.resolver.Refresh(c.Request.Context(), h.provider)
	if err != nil {
		respondError(c, "refresh model resolution", err)
		return
	}
	dto.Success(c, res)
}
