package handler

import (
	"github.com/gin-gonic/gin"

	"ptt-copy-ai/internal/interfaces/http/dto"
)

// OpinionHandler 口碑分析处理器
type OpinionHandler struct {
	analyzer OpinionAnalyzer
}

func NewOpinionHandler(analyzer OpinionAnalyzer) *OpinionHandler {
	return &OpinionHandler{analyzer: analyzer}
}

// Analyze 正负评摘要与综合分析
// @Summary 口碑分析
// @Tags Opinions
// @Accept json
// @Produce json
// @Param body body dto.AnalyzeOpinionsRequest true "网路言论"
// @Success 200 {object} dto.Response[entity.OpinionReport]
// @Router /v1/opinions/analyze [post]
func (h *OpinionHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeOpinionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	report, err := h.analyzer.Analyze(c.Request.Context(), req.Comments)
	if err != nil {
		respondError(c, "analyze opinions", err)
		return
	}
	dto.Success(c, report)
}
