package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// RateLimited guards a strategy with a per-channel rate limiter. A denied
// send becomes a failed result; a limiter outage lets the send through.
type RateLimited struct {
	next    domain.Strategy
	limiter domain.RateLimiter
	logger  *slog.Logger
}

// NewRateLimited wraps next with limiter
func NewRateLimited(next domain.Strategy, limiter domain.RateLimiter, logger *slog.Logger) *RateLimited {
	return &RateLimited{next: next, limiter: limiter, logger: logger}
}

func (s *RateLimited) Channel() domain.Channel { return s.next.Channel() }

func (s *RateLimited) Send(ctx context.Context, req *domain.NotificationRequest) domain.NotificationResult {
	channel := s.next.Channel()

	allowed, err := s.limiter.Allow(ctx, channel)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, sending anyway",
			"channel", channel,
			"error", err,
		)
		return s.next.Send(ctx, req)
	}
	if !allowed {
		return domain.Failed(channel, fmt.Sprintf("%s for %s channel", domain.ErrRateLimitExceeded, channel))
	}

	return s.next.Send(ctx, req)
}
