// Package strategy holds the per-channel delivery strategies. Each one maps a
// generic notification request onto its provider client and folds every
// outcome into a domain.NotificationResult.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

const (
	metaProviderStatus = "provider_status"
	metaRecipient      = "recipient"
)

var (
	// e164Pattern accepts 8 to 15 digits after the leading plus
	e164Pattern     = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

// NormalizePhone turns a loosely formatted phone number into E.164.
func NormalizePhone(raw string) (string, error) {
	phone := phoneSeparators.Replace(strings.TrimSpace(raw))
	phone = strings.TrimPrefix(phone, "whatsapp:")
	if strings.HasPrefix(phone, "00") {
		phone = "+" + phone[2:]
	}

	if !e164Pattern.MatchString(phone) {
		return "", fmt.Errorf("recipient %q is not a valid E.164 phone number", raw)
	}
	return phone, nil
}

// providerFailure converts a provider client error into a failed result. Only
// provider payload messages reach the caller; transport errors are logged and
// replaced by a generic message.
func providerFailure(ctx context.Context, logger *slog.Logger, channel domain.Channel, err error) domain.NotificationResult {
	var providerErr domain.ProviderError
	switch {
	case errors.As(err, &providerErr):
		logger.Warn("provider rejected notification",
			"channel", channel,
			"status_code", providerErr.StatusCode,
			"code", providerErr.Code,
			"retryable", providerErr.Retryable,
		)
		return domain.Failed(channel, providerErr.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return domain.Failed(channel, "provider request timed out")

	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		cause := context.Cause(ctx)
		if cause == nil {
			cause = err
		}
		return domain.Failed(channel, fmt.Sprintf("%s: %v", domain.ErrCancelled, cause))

	default:
		logger.Error("provider request failed",
			"channel", channel,
			"error", err,
		)
		return domain.Failed(channel, fmt.Sprintf("%s: %s provider request failed", domain.ErrProviderError, channel))
	}
}

func statusMetadata(status string) map[string]string {
	if status == "" {
		return nil
	}
	return map[string]string{metaProviderStatus: status}
}
