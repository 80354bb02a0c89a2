package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// EmailStrategy delivers notifications by email
type EmailStrategy struct {
	client domain.EmailClient
	logger *slog.Logger
}

// NewEmailStrategy creates a new EmailStrategy
func NewEmailStrategy(client domain.EmailClient, logger *slog.Logger) *EmailStrategy {
	return &EmailStrategy{client: client, logger: logger}
}

func (s *EmailStrategy) Channel() domain.Channel { return domain.ChannelEmail }

func (s *EmailStrategy) Send(ctx context.Context, req *domain.NotificationRequest) domain.NotificationResult {
	addr, err := mail.ParseAddress(req.Recipient)
	if err != nil {
		return domain.Failed(domain.ChannelEmail, fmt.Sprintf("recipient %q is not a valid email address", req.Recipient))
	}

	receipt, err := s.client.SendEmail(ctx, addr.Address, req.Subject, req.Body)
	if err != nil {
		return providerFailure(ctx, s.logger, domain.ChannelEmail, err)
	}
	if receipt == nil {
		return domain.Succeeded(domain.ChannelEmail, "", nil)
	}

	return domain.Succeeded(domain.ChannelEmail, receipt.MessageID, statusMetadata(receipt.Status))
}
