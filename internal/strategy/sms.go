package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
)

const (
	smsSegmentLength = 160
	maxSMSSegments   = 4
)

// SMSStrategy delivers notifications as plain text messages
type SMSStrategy struct {
	client domain.MessagingClient
	from   string
	format *domain.Template
	logger *slog.Logger
}

// NewSMSStrategy creates a new SMSStrategy
func NewSMSStrategy(client domain.MessagingClient, cfg config.SMSConfig, logger *slog.Logger) *SMSStrategy {
	format := cfg.Format
	if format == "" {
		format = "{{subject}}: {{body}}"
	}
	return &SMSStrategy{
		client: client,
		from:   cfg.From,
		format: domain.NewTemplate("sms", format),
		logger: logger,
	}
}

func (s *SMSStrategy) Channel() domain.Channel { return domain.ChannelSMS }

// Send renders the message text and hands it to the messaging provider
func (s *SMSStrategy) Send(ctx context.Context, req *domain.NotificationRequest) domain.NotificationResult {
	to, err := NormalizePhone(req.Recipient)
	if err != nil {
		return domain.Failed(domain.ChannelSMS, err.Error())
	}

	text := s.format.Render(domain.TemplateVars(req))
	length := utf8.RuneCountInString(text)
	if length > smsSegmentLength*maxSMSSegments {
		return domain.Failed(domain.ChannelSMS,
			fmt.Sprintf("content exceeds maximum length of %d characters for sms channel", smsSegmentLength*maxSMSSegments))
	}

	resp, err := s.client.SendMessage(ctx, &domain.MessageRequest{
		To:   to,
		From: s.from,
		Body: text,
	})
	if err != nil {
		return providerFailure(ctx, s.logger, domain.ChannelSMS, err)
	}
	if resp == nil {
		resp = &domain.MessageResponse{}
	}

	metadata := map[string]string{
		metaRecipient: to,
		"segments":    strconv.Itoa((length + smsSegmentLength - 1) / smsSegmentLength),
	}
	if resp.Status != "" {
		metadata[metaProviderStatus] = resp.Status
	}

	return domain.Succeeded(domain.ChannelSMS, resp.MessageID, metadata)
}
