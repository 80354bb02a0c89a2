package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// SendGridClient sends plain text email through the SendGrid v3 mail API
type SendGridClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	from    sendGridAddress
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridMail struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridErrors struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

// NewSendGridClient creates a new SendGridClient
func NewSendGridClient(cfg config.SendGridConfig) *SendGridClient {
	return &SendGridClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		from:    sendGridAddress{Email: cfg.FromAddress, Name: cfg.FromName},
	}
}

// SendEmail sends a single text/plain email. SendGrid answers 202 with an
// empty body and the message id in a header.
func (c *SendGridClient) SendEmail(ctx context.Context, to, subject, body string) (*domain.DeliveryReceipt, error) {
	payload, err := json.Marshal(sendGridMail{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: to}}}},
		From:             c.from,
		Subject:          subject,
		Content:          []sendGridContent{{Type: "text/plain", Value: body}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		var errs sendGridErrors
		_ = json.Unmarshal(readErrorBody(resp), &errs)
		messages := make([]string, 0, len(errs.Errors))
		for _, e := range errs.Errors {
			if e.Message != "" {
				messages = append(messages, e.Message)
			}
		}
		return nil, providerError(resp.StatusCode, "", strings.Join(messages, "; "))
	}

	return &domain.DeliveryReceipt{
		MessageID: resp.Header.Get("X-Message-Id"),
		Status:    "accepted",
	}, nil
}
