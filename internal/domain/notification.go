package domain

import (
	"context"
	"strings"
)

// NotificationRequest is one logical notification to be delivered over one or
// more channels. Recipient is interpreted by each channel strategy.
type NotificationRequest struct {
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Channels  []Channel         `json:"channels"`
}

// Validate checks the request-level invariants. Every problem found is
// reported; the returned error wraps ErrInvalidInput.
func (r *NotificationRequest) Validate() error {
	if r == nil {
		return NewValidationError("request", "request is required")
	}

	var errs []ValidationError
	if strings.TrimSpace(r.Recipient) == "" {
		errs = append(errs, NewValidationError("recipient", "recipient is required"))
	}
	if strings.TrimSpace(r.Subject) == "" {
		errs = append(errs, NewValidationError("subject", "subject is required"))
	}
	if strings.TrimSpace(r.Body) == "" {
		errs = append(errs, NewValidationError("body", "body is required"))
	}
	if len(r.Channels) == 0 {
		errs = append(errs, NewValidationError("channels", "at least one channel is required"))
	}
	for _, c := range r.Channels {
		if !c.IsValid() {
			errs = append(errs, NewValidationError("channels", "unknown channel "+string(c)))
		}
	}

	if len(errs) > 0 {
		return ValidationErrors{Errors: errs}
	}
	return nil
}

// NotificationResult is the outcome of one concrete channel's send attempt.
type NotificationResult struct {
	Channel           Channel           `json:"channel"`
	Success           bool              `json:"success"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	ExternalReference string            `json:"external_reference,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// Succeeded builds a successful result. externalRef may be empty when the
// provider does not return an identifier.
func Succeeded(channel Channel, externalRef string, metadata map[string]string) NotificationResult {
	return NotificationResult{
		Channel:           channel,
		Success:           true,
		ExternalReference: externalRef,
		Metadata:          metadata,
	}
}

// Failed builds a failed result with a human readable message.
func Failed(channel Channel, message string) NotificationResult {
	if message == "" {
		message = "unknown error"
	}
	return NotificationResult{
		Channel:      channel,
		Success:      false,
		ErrorMessage: message,
	}
}

// Strategy delivers a request over one concrete channel. Implementations must
// not return errors across this boundary: every failure becomes a failed
// NotificationResult tagged with Channel().
type Strategy interface {
	Channel() Channel
	Send(ctx context.Context, req *NotificationRequest) NotificationResult
}
