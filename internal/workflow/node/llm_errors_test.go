package node

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "ptt-copy-ai/pkg/errors"
)

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "dial tcp 10.0.0.1:443" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return true }

func TestClassifyLLMError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want apperrors.ErrorCode
	}{
		{"deadline", fmt.Errorf("generate: %w", context.DeadlineExceeded), apperrors.CodeLLMTimeout},
		{"canceled", context.Canceled, apperrors.CodeLLMUnavailable},
		{"status 429", &ProviderStatusError{StatusCode: 429, Err: errors.New("slow down")}, apperrors.CodeQuotaExceeded},
		{"resource exhausted", &ProviderStatusError{StatusCode: 400, Status: "RESOURCE_EXHAUSTED", Err: errors.New("x")}, apperrors.CodeQuotaExceeded},
		{"status 403", &ProviderStatusError{StatusCode: 403, Err: errors.New("denied")}, apperrors.CodeConfigInvalid},
		{"status 503", &ProviderStatusError{StatusCode: 503, Err: errors.New("busy")}, apperrors.CodeLLMUnavailable},
		{"status 404 falls to message", &ProviderStatusError{StatusCode: 404, Err: errors.New("models/x is not found")}, apperrors.CodeLLMProviderError},
		{"bad key text", errors.New("Error 400: API key not valid. Please pass a valid API key."), apperrors.CodeConfigInvalid},
		{"quota text", errors.New("googleapi: Error 429: You exceeded your current quota"), apperrors.CodeQuotaExceeded},
		{"safety text", errors.New("response blocked due to SAFETY"), apperrors.CodeSafetyBlocked},
		{"net timeout", fakeNetErr{timeout: true}, apperrors.CodeLLMTimeout},
		{"net refused", fakeNetErr{}, apperrors.CodeLLMUnavailable},
		{"other", errors.New("unexpected token"), apperrors.CodeLLMProviderError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyLLMError(tc.err)
			assert.Equal(t, tc.want, apperrors.CodeOf(got))
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyLLMErrorKeepsClassified(t *testing.T) {
	classified := apperrors.New(apperrors.CodeSafetyBlocked, "blocked")
	assert.Same(t, classified, ClassifyLLMError(classified))
	assert.Nil(t, ClassifyLLMError(nil))
}

func TestIsSafetyFinishReason(t *testing.T) {
	assert.True(t, IsSafetyFinishReason("SAFETY"))
	assert.True(t, IsSafetyFinishReason("content_filter"))
	assert.False(t, IsSafetyFinishReason("STOP"))
	assert.False(t, IsSafetyFinishReason(""))
}
