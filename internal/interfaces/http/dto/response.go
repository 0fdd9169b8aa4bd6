// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ptt-copy-ai/pkg/errors"
)

// Response 统一响应结构
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorDetail 错误详情，Details 保留 Provider 的原始信息；
// CauseCode 为链中最内层的错误类别，与 ErrorCode 相同时省略
type ErrorDetail struct {
	ErrorCode   string   `json:"error_code,omitempty"`
	CauseCode   string   `json:"cause_code,omitempty"`
	Details     string   `json:"details,omitempty"`
	Retryable   bool     `json:"retryable,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// NoContent 返回 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func fail(c *gin.Context, status int, message string, detail *ErrorDetail) {
	c.JSON(status, ErrorResponse{
		Code:    status,
		Message: message,
		Error:   detail,
		TraceID: c.GetString("trace_id"),
	})
}

// AppError 按错误码渲染应用错误
func AppError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	details := appErr.Detail
	if appErr.Err != nil {
		if details != "" {
			details += "; "
		}
		details += appErr.Err.Error()
	}
	detail := &ErrorDetail{
		ErrorCode:   string(appErr.Code),
		Details:     details,
		Retryable:   errors.Retryable(err),
		Suggestions: suggestionsFor(appErr.Code),
	}
	if cause := errors.CauseOf(err); cause != appErr.Code && cause != errors.CodeUnknown {
		detail.CauseCode = string(cause)
		if detail.Suggestions == nil {
			detail.Suggestions = suggestionsFor(cause)
		}
	}
	fail(c, appErr.HTTPStatus, appErr.Message, detail)
}

func suggestionsFor(code errors.ErrorCode) []string {
	switch code {
	case errors.CodeQuotaExceeded:
		return []string{"wait for the quota to reset", "POST /v1/models/resolve to switch model"}
	case errors.CodeConfigInvalid:
		return []string{"check the configured api key or store one with model-probe -set-key"}
	case errors.CodeSafetyBlocked:
		return []string{"soften the tone or change the topic wording"}
	case errors.CodeNoTitleSelected:
		return []string{"POST /v1/session/select first"}
	default:
		return nil
	}
}

// BadRequest 返回 400，用于请求体绑定失败
func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message, &ErrorDetail{ErrorCode: string(errors.CodeInvalidParam)})
}
