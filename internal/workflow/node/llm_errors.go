package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	apperrors "ptt-copy-ai/pkg/errors"
)

// ProviderStatusError 携带 Provider 返回的 HTTP 状态，由基础设施层包装
type ProviderStatusError struct {
	StatusCode int
	// Status 例如 RESOURCE_EXHAUSTED
	Status string
	Err    error
}

func (e *ProviderStatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider status %d %s", e.StatusCode, e.Status)
	}
	return e.Err.Error()
}

func (e *ProviderStatusError) Unwrap() error {
	return e.Err
}

var safetyFinishReasons = map[string]struct{}{
	"SAFETY":             {},
	"PROHIBITED_CONTENT": {},
	"BLOCKLIST":          {},
	"SPII":               {},
	"IMAGE_SAFETY":       {},
	"CONTENT_FILTER":     {},
}

// IsSafetyFinishReason 判断结束原因是否为内容过滤
func IsSafetyFinishReason(reason string) bool {
	_, ok := safetyFinishReasons[strings.ToUpper(strings.TrimSpace(reason))]
	return ok
}

// taxonomyCodes 已分类的错误码，重复分类时原样返回
var taxonomyCodes = []apperrors.ErrorCode{
	apperrors.CodeConfigInvalid,
	apperrors.CodeQuotaExceeded,
	apperrors.CodeSafetyBlocked,
	apperrors.CodeLLMUnavailable,
	apperrors.CodeLLMTimeout,
	apperrors.CodeLLMProviderError,
	apperrors.CodeModelResolutionFailed,
}

// ClassifyLLMError 将 Provider 错误归类为应用错误
//
// 归类结果决定调用方的处理方式：配额错误需要等待或换模型，
// 凭证错误需要重新配置，安全过滤不应盲目重试。
func ClassifyLLMError(err error) error {
	if err == nil {
		return nil
	}
	for _, code := range taxonomyCodes {
		if apperrors.HasCode(err, code) {
			return err
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.CodeLLMTimeout, "llm call timed out")
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.CodeLLMUnavailable, "llm call canceled")
	}

	var statusErr *ProviderStatusError
	if errors.As(err, &statusErr) {
		if code, ok := codeFromStatus(statusErr.StatusCode, statusErr.Status); ok {
			return apperrors.Wrap(err, code, messageFor(code))
		}
	}

	if code, ok := codeFromMessage(err.Error()); ok {
		return apperrors.Wrap(err, code, messageFor(code))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperrors.Wrap(err, apperrors.CodeLLMTimeout, messageFor(apperrors.CodeLLMTimeout))
		}
		return apperrors.Wrap(err, apperrors.CodeLLMUnavailable, messageFor(apperrors.CodeLLMUnavailable))
	}

	return apperrors.Wrap(err, apperrors.CodeLLMProviderError, messageFor(apperrors.CodeLLMProviderError))
}

func codeFromStatus(statusCode int, status string) (apperrors.ErrorCode, bool) {
	switch strings.ToUpper(status) {
	case "RESOURCE_EXHAUSTED":
		return apperrors.CodeQuotaExceeded, true
	case "PERMISSION_DENIED", "UNAUTHENTICATED":
		return apperrors.CodeConfigInvalid, true
	case "DEADLINE_EXCEEDED":
		return apperrors.CodeLLMTimeout, true
	case "UNAVAILABLE", "INTERNAL":
		return apperrors.CodeLLMUnavailable, true
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return apperrors.CodeQuotaExceeded, true
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperrors.CodeConfigInvalid, true
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return apperrors.CodeLLMTimeout, true
	case statusCode >= http.StatusInternalServerError:
		return apperrors.CodeLLMUnavailable, true
	}
	return "", false
}

func codeFromMessage(msg string) (apperrors.ErrorCode, bool) {
	m := strings.ToLower(msg)
	switch {
	case containsAny(m, "api key not valid", "api_key_invalid", "invalid api key", "incorrect api key", "unauthenticated", "permission denied", "permission_denied"):
		return apperrors.CodeConfigInvalid, true
	case containsAny(m, "resource_exhausted", "quota", "rate limit", "ratelimit", "too many requests", "status code: 429", "error 429"):
		return apperrors.CodeQuotaExceeded, true
	case containsAny(m, "safety", "prohibited_content", "content_filter", "content management policy", "blocked"):
		return apperrors.CodeSafetyBlocked, true
	case containsAny(m, "deadline exceeded", "timed out", "timeout"):
		return apperrors.CodeLLMTimeout, true
	case containsAny(m, "connection refused", "connection reset", "no such host", "unexpected eof", "overloaded", "unavailable", "status code: 500", "status code: 502", "status code: 503"):
		return apperrors.CodeLLMUnavailable, true
	}
	return "", false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func messageFor(code apperrors.ErrorCode) string {
	switch code {
	case apperrors.CodeConfigInvalid:
		return "llm credential rejected, check the configured api key"
	case apperrors.CodeQuotaExceeded:
		return "llm quota exceeded, wait for the quota to reset or switch model"
	case apperrors.CodeSafetyBlocked:
		return "llm declined to generate for content policy reasons"
	case apperrors.CodeLLMTimeout:
		return "llm call timed out"
	case apperrors.CodeLLMUnavailable:
		return "llm temporarily unavailable, retry later"
	default:
		return "llm provider error"
	}
}

// SafetyBlocked 构造安全过滤错误
func SafetyBlocked(reason string) error {
	return apperrors.New(apperrors.CodeSafetyBlocked, messageFor(apperrors.CodeSafetyBlocked)).
		WithDetail("finish_reason=" + reason)
}
