package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// FCMClient sends push notifications through the Firebase Cloud Messaging
// HTTP v1 API
type FCMClient struct {
	client    *http.Client
	baseURL   string
	projectID string
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Name string `json:"name"`
}

type fcmError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// LoadFCMTokenSource reads the service account file named in cfg and returns
// a token source scoped for FCM. Without a file, application default
// credentials are used.
func LoadFCMTokenSource(ctx context.Context, cfg config.FCMConfig) (oauth2.TokenSource, error) {
	if cfg.CredentialsFile == "" {
		creds, err := google.FindDefaultCredentials(ctx, fcmScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		return creds.TokenSource, nil
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}

// NewFCMClient creates a new FCMClient authorised by ts
func NewFCMClient(cfg config.FCMConfig, ts oauth2.TokenSource) *FCMClient {
	return &FCMClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.ReuseTokenSource(nil, ts),
				Base:   http.DefaultTransport,
			},
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		projectID: cfg.ProjectID,
	}
}

// SendPush sends msg to a single device and returns the message name
func (c *FCMClient) SendPush(ctx context.Context, msg *domain.PushMessage) (string, error) {
	payload, err := json.Marshal(fcmRequest{Message: fcmMessage{
		Token:        msg.Token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.baseURL, c.projectID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("fcm request failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		var payload fcmError
		_ = json.Unmarshal(readErrorBody(resp), &payload)
		return "", providerError(resp.StatusCode, payload.Error.Status, payload.Error.Message)
	}

	var out fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode fcm response: %w", err)
	}
	return out.Name, nil
}
