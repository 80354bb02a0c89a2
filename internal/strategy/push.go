package strategy

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

const maxPushTokenLength = 4096

// PushStrategy delivers notifications to a single mobile device
type PushStrategy struct {
	client domain.PushClient
	logger *slog.Logger
}

// NewPushStrategy creates a new PushStrategy
func NewPushStrategy(client domain.PushClient, logger *slog.Logger) *PushStrategy {
	return &PushStrategy{client: client, logger: logger}
}

func (s *PushStrategy) Channel() domain.Channel { return domain.ChannelPush }

// Send passes subject and body as the notification and metadata as the data payload
func (s *PushStrategy) Send(ctx context.Context, req *domain.NotificationRequest) domain.NotificationResult {
	token := strings.TrimSpace(req.Recipient)
	switch {
	case token == "":
		return domain.Failed(domain.ChannelPush, "device token is required")
	case len(token) > maxPushTokenLength:
		return domain.Failed(domain.ChannelPush, "device token is too long")
	case strings.IndexFunc(token, unicode.IsSpace) >= 0:
		return domain.Failed(domain.ChannelPush, "device token must not contain whitespace")
	}

	var data map[string]string
	if len(req.Metadata) > 0 {
		data = make(map[string]string, len(req.Metadata))
		for k, v := range req.Metadata {
			data[k] = v
		}
	}

	name, err := s.client.SendPush(ctx, &domain.PushMessage{
		Token: token,
		Title: req.Subject,
		Body:  req.Body,
		Data:  data,
	})
	if err != nil {
		return providerFailure(ctx, s.logger, domain.ChannelPush, err)
	}

	return domain.Succeeded(domain.ChannelPush, name, nil)
}
