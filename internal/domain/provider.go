package domain

import "context"

// MessageRequest is a send request to an SMS or WhatsApp provider. When
// TemplateID is set the provider renders its pre-approved template with
// TemplateVariables and Body is ignored.
type MessageRequest struct {
	To                string            `json:"to"`
	From              string            `json:"from"`
	Body              string            `json:"body,omitempty"`
	TemplateID        string            `json:"template_id,omitempty"`
	TemplateVariables map[string]string `json:"template_variables,omitempty"`
}

// MessageResponse is what the messaging provider returns for an accepted message
type MessageResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// DeliveryReceipt is returned by the email provider
type DeliveryReceipt struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// PushMessage is a push notification addressed to a single device
type PushMessage struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// MessagingClient sends SMS and WhatsApp messages
type MessagingClient interface {
	SendMessage(ctx context.Context, req *MessageRequest) (*MessageResponse, error)
}

// EmailClient sends email
type EmailClient interface {
	SendEmail(ctx context.Context, to, subject, body string) (*DeliveryReceipt, error)
}

// PushClient sends mobile push notifications and returns the provider's
// message name.
type PushClient interface {
	SendPush(ctx context.Context, msg *PushMessage) (string, error)
}

// RateLimiter defines the interface for per-channel rate limiting
type RateLimiter interface {
	// Allow checks if a request is allowed under the rate limit
	Allow(ctx context.Context, channel Channel) (bool, error)
}
