package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// TwilioClient sends SMS and WhatsApp messages through the Twilio Messages API
type TwilioClient struct {
	client     *http.Client
	baseURL    string
	accountSID string
	authToken  string
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewTwilioClient creates a new TwilioClient
func NewTwilioClient(cfg config.TwilioConfig) *TwilioClient {
	return &TwilioClient{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
	}
}

// SendMessage creates a message. Templated requests are sent as a content
// template with JSON encoded variables.
func (c *TwilioClient) SendMessage(ctx context.Context, req *domain.MessageRequest) (*domain.MessageResponse, error) {
	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	if req.TemplateID != "" {
		vars, err := json.Marshal(req.TemplateVariables)
		if err != nil {
			return nil, fmt.Errorf("failed to encode content variables: %w", err)
		}
		form.Set("ContentSid", req.TemplateID)
		form.Set("ContentVariables", string(vars))
	} else {
		form.Set("Body", req.Body)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.SetBasicAuth(c.accountSID, c.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		var payload twilioError
		_ = json.Unmarshal(readErrorBody(resp), &payload)
		code := ""
		if payload.Code != 0 {
			code = strconv.Itoa(payload.Code)
		}
		return nil, providerError(resp.StatusCode, code, payload.Message)
	}

	var msg twilioMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode twilio response: %w", err)
	}

	return &domain.MessageResponse{MessageID: msg.SID, Status: msg.Status}, nil
}
