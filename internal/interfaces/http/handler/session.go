package handler

import (
	"github.com/gin-gonic/gin"

	"ptt-copy-ai/internal/application/copywriter"
	"ptt-copy-ai/internal/interfaces/http/dto"
)

// SessionHandler 会话与文案生成处理器
type SessionHandler struct {
	svc CopywriterService
}

func NewSessionHandler(svc CopywriterService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// GetCatalog 返回议题、语气与标签
// @Summary 内容表
// @Tags Catalog
// @Produce json
// @Success 200 {object} dto.Response[dto.CatalogResponse]
// @Router /v1/catalog [get]
func (h *SessionHandler) GetCatalog(c *gin.Context) {
	dto.Success(c, dto.ToCatalogResponse(h.svc.Catalog()))
}

// GetSession 会话快照
// @Summary 会话快照
// @Tags Session
// @Produce json
// @Router /v1/session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	dto.Success(c, h.svc.Snapshot())
}

// ResetSession 清空会话
// @Summary 清空会话
// @Tags Session
// @Produce json
// @Router /v1/session/reset [post]
func (h *SessionHandler) ResetSession(c *gin.Context) {
	dto.Success(c, h.svc.Reset(c.Request.Context()))
}

// GenerateTitles 生成候选标题
// @Summary 生成候选标题
// @Tags Session
// @Accept json
// @Produce json
// @Param body body dto.GenerateTitlesRequest true "生成参数"
// @Success 200 {object} dto.Response[entity.TitleBatch]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/session/titles [post]
func (h *SessionHandler) GenerateTitles(c *gin.Context) {
	var req dto.GenerateTitlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	batch, err := h.svc.GenerateTitles(c.Request.Context(), copywriter.TitleRequest{
		Tag:      req.Tag,
		Topic:    req.Topic,
		Tone:     req.Tone,
		CoreText: req.CoreText,
	})
	if err != nil {
		respondError(c, "generate titles", err)
		return
	}
	dto.Success(c, batch)
}

// SelectTitle 选择候选标题
// @Summary 选择标题
// @Tags Session
// @Accept json
// @Produce json
// @Param body body dto.SelectTitleRequest true "标题"
// @Router /v1/session/select [post]
func (h *SessionHandler) SelectTitle(c *gin.Context) {
	var req dto.SelectTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	snap, err := h.svc.Select(c.Request.Context(), req.Title)
	if err != nil {
		respondError(c, "select title", err)
		return
	}
	dto.Success(c, snap)
}

// GeneratePost 为已选标题生成内文与推文
// @Summary 生成内文
// @Tags Session
// @Accept json
// @Produce json
// @Param body body dto.GeneratePostRequest false "可选标题"
// @Success 200 {object} dto.Response[dto.PostResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/session/post [post]
func (h *SessionHandler) GeneratePost(c *gin.Context) {
	var req dto.GeneratePostRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	result, err := h.svc.GeneratePost(c.Request.Context(), req.Title)
	if err != nil {
		respondError(c, "generate post", err)
		return
	}
	dto.Success(c, dto.ToPostResponse(result))
}
