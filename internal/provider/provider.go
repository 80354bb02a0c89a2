// Package provider contains the HTTP clients for the external delivery
// services. Every client returns domain.ProviderError when the service
// answers with an error payload and a wrapped transport error otherwise.
package provider

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

func isRetryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// providerError builds a ProviderError from a non-2xx response. message is
// the provider's own message when its payload could be parsed.
func providerError(status int, code, message string) domain.ProviderError {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", status)
	}
	return domain.ProviderError{
		StatusCode: status,
		Code:       code,
		Message:    message,
		Retryable:  isRetryable(status),
	}
}

func readErrorBody(resp *http.Response) []byte {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return body
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
