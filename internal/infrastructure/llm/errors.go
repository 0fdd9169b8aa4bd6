package llm

import (
	"errors"

	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"ptt-copy-ai/internal/workflow/node"
)

// wrapProviderError 提取 SDK 错误中的 HTTP 状态，供工作流层归类
func wrapProviderError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &node.ProviderStatusError{StatusCode: apiErr.Code, Status: apiErr.Status, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &node.ProviderStatusError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Err: err}
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) && oaiErr != nil {
		return &node.ProviderStatusError{StatusCode: oaiErr.StatusCode, Status: oaiErr.Code, Err: err}
	}

	return err
}
