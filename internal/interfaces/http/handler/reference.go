package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"ptt-copy-ai/internal/application/copywriter"
	"ptt-copy-ai/internal/interfaces/http/dto"
	"ptt-copy-ai/pkg/errors"
)

const uploadField = "files"

// ReferenceHandler 参考资料上传处理器
type ReferenceHandler struct {
	svc            CopywriterService
	maxUploadBytes int64
}

func NewReferenceHandler(svc CopywriterService, maxUploadBytes int64) *ReferenceHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 8 << 20
	}
	return &ReferenceHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Upload 上传参考资料（multipart，字段 files）
// @Summary 上传参考资料
// @Tags Session
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} dto.Response[dto.ReferenceUploadResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/session/references [post]
func (h *ReferenceHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		dto.BadRequest(c, fmt.Sprintf("invalid multipart form (limit %d bytes): %v", h.maxUploadBytes, err))
		return
	}
	headers := form.File[uploadField]
	if len(headers) == 0 {
		dto.BadRequest(c, "no files in field "+uploadField)
		return
	}

	uploads := make([]copywriter.Upload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respondError(c, "upload references", errors.Wrap(err, errors.CodeReferenceRejected, "failed to open uploaded file").WithDetail(fh.Filename))
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, copywriter.Upload{Name: fh.Filename, Reader: f})
	}

	docs, skipped, err := h.svc.AddUploads(c.Request.Context(), uploads)
	if err != nil {
		respondError(c, "upload references", err)
		return
	}
	dto.Success(c, dto.ReferenceUploadResponse{Uploaded: docs, Skipped: skipped})
}

// Clear 清空上传资料
// @Summary 清空上传资料
// @Tags Session
// @Router /v1/session/references [delete]
func (h *ReferenceHandler) Clear(c *gin.Context) {
	h.svc.ClearUploads(c.Request.Context())
	dto.NoContent(c)
}
