package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// WebhookProvider posts every outgoing message to a single HTTP endpoint. It
// implements the messaging, email and push clients and is the default
// provider outside production.
type WebhookProvider struct {
	client  *http.Client
	baseURL string
}

// webhookMessage is the JSON envelope posted to the webhook
type webhookMessage struct {
	Channel           domain.Channel    `json:"channel"`
	To                string            `json:"to"`
	From              string            `json:"from,omitempty"`
	Subject           string            `json:"subject,omitempty"`
	Body              string            `json:"body,omitempty"`
	TemplateID        string            `json:"templateId,omitempty"`
	TemplateVariables map[string]string `json:"templateVariables,omitempty"`
	Data              map[string]string `json:"data,omitempty"`
}

type webhookResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

// NewWebhookProvider creates a new WebhookProvider
func NewWebhookProvider(cfg config.WebhookConfig) *WebhookProvider {
	return &WebhookProvider{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.URL,
	}
}

// SendMessage delivers an SMS or WhatsApp message. The channel is derived
// from the whatsapp: address prefix.
func (p *WebhookProvider) SendMessage(ctx context.Context, req *domain.MessageRequest) (*domain.MessageResponse, error) {
	channel := domain.ChannelSMS
	if strings.HasPrefix(req.To, "whatsapp:") {
		channel = domain.ChannelWhatsApp
	}

	resp, err := p.post(ctx, &webhookMessage{
		Channel:           channel,
		To:                req.To,
		From:              req.From,
		Body:              req.Body,
		TemplateID:        req.TemplateID,
		TemplateVariables: req.TemplateVariables,
	})
	if err != nil {
		return nil, err
	}
	return &domain.MessageResponse{MessageID: resp.MessageID, Status: resp.Status}, nil
}

// SendEmail delivers an email
func (p *WebhookProvider) SendEmail(ctx context.Context, to, subject, body string) (*domain.DeliveryReceipt, error) {
	resp, err := p.post(ctx, &webhookMessage{
		Channel: domain.ChannelEmail,
		To:      to,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	return &domain.DeliveryReceipt{MessageID: resp.MessageID, Status: resp.Status}, nil
}

// SendPush delivers a push notification
func (p *WebhookProvider) SendPush(ctx context.Context, msg *domain.PushMessage) (string, error) {
	resp, err := p.post(ctx, &webhookMessage{
		Channel: domain.ChannelPush,
		To:      msg.Token,
		Subject: msg.Title,
		Body:    msg.Body,
		Data:    msg.Data,
	})
	if err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

func (p *WebhookProvider) post(ctx context.Context, msg *webhookMessage) (*webhookResponse, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		respBody := readErrorBody(resp)
		var parsed webhookResponse
		message := string(respBody)
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != "" {
			message = parsed.Error
		}
		return nil, providerError(resp.StatusCode, "", message)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// webhook.site and similar sinks answer with arbitrary bodies
	var parsed webhookResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.MessageID == "" {
		parsed.MessageID = "msg-" + uuid.NewString()
	}
	if parsed.Status == "" {
		parsed.Status = "accepted"
	}

	return &parsed, nil
}
