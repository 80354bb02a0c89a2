package domain

import (
	"errors"
	"fmt"
)

// Domain Const errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrProviderError     = errors.New("external provider error")
	ErrCancelled         = errors.New("dispatch cancelled")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrDuplicateChannel  = errors.New("channel already registered")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrInvalidInput).
func (e ValidationError) Unwrap() error {
	return ErrInvalidInput
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", e.Errors[0].Error())
}

func (e ValidationErrors) Unwrap() error {
	return ErrInvalidInput
}

func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// ProviderError is returned by collaborator clients when the provider rejects
// or fails to process a send. Message is taken from the provider's payload.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
}

func (e ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}

func (e ProviderError) Unwrap() error {
	return ErrProviderError
}

func NewProviderError(statusCode int, message string, retryable bool) ProviderError {
	return ProviderError{
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
	}
}
