package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	aierrors "github.com/hrygo/quillnote/internal/errors"
)

// newClient builds a go-openai client for any OpenAI-compatible provider.
func newClient(provider, apiKey, baseURL string) (*openai.Client, error) {
	var clientConfig openai.ClientConfig

	switch provider {
	case "openai", "siliconflow", "deepseek":
		clientConfig = openai.DefaultConfig(apiKey)
		if baseURL != "" {
			clientConfig.BaseURL = baseURL
		}

	case "ollama":
		// Ollama serves the OpenAI API under /v1 and ignores the token.
		if baseURL == "" {
			return nil, fmt.Errorf("ollama requires a base URL")
		}
		clientConfig = openai.DefaultConfig("ollama")
		clientConfig.BaseURL = baseURL

	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	return openai.NewClientWithConfig(clientConfig), nil
}

// classifyError maps a go-openai failure onto an AIError code.
func classifyError(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if stderrors.Is(ctxErr, context.Canceled) {
			return aierrors.ContextCanceled(err)
		}
		return aierrors.Wrap(err, aierrors.ErrCodeTimeout, msg)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return aierrors.Wrap(err, aierrors.ErrCodeTimeout, msg)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case stderrors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case stderrors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	aiErr := aierrors.Wrap(err, codeForStatus(status), msg)
	if status != 0 {
		aiErr = aiErr.WithContext("http_status", status)
	}
	return aiErr
}

func codeForStatus(status int) aierrors.ErrorCode {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return aierrors.ErrCodeUnauthorized
	case status == http.StatusTooManyRequests:
		return aierrors.ErrCodeRateLimitExceeded
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return aierrors.ErrCodeTimeout
	case status == http.StatusBadRequest, status == http.StatusNotFound, status == http.StatusUnprocessableEntity:
		return aierrors.ErrCodeInvalidArgument
	case status >= http.StatusInternalServerError:
		return aierrors.ErrCodeServiceUnavailable
	case status == 0:
		// Transport failure before any response arrived.
		return aierrors.ErrCodeServiceUnavailable
	default:
		return aierrors.ErrCodeLLMUnavailable
	}
}
