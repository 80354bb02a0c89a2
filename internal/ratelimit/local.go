// Package ratelimit provides an in-process per-channel limiter used when no
// shared Redis is configured.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// Local is a token bucket per channel. It satisfies domain.RateLimiter and
// never returns an error.
type Local struct {
	mu       sync.Mutex
	limiters map[domain.Channel]*rate.Limiter
	perSec   rate.Limit
	burst    int
}

// NewLocal creates a limiter allowing perSec sends per channel with the given
// burst. A burst below one is raised to one.
func NewLocal(perSec, burst int) *Local {
	if burst < 1 {
		burst = 1
	}
	return &Local{
		limiters: make(map[domain.Channel]*rate.Limiter),
		perSec:   rate.Limit(perSec),
		burst:    burst,
	}
}

func (l *Local) limiter(channel domain.Channel) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[channel]
	if !ok {
		lim = rate.NewLimiter(l.perSec, l.burst)
		l.limiters[channel] = lim
	}
	return lim
}

// Allow consumes one token for channel if available
func (l *Local) Allow(_ context.Context, channel domain.Channel) (bool, error) {
	return l.limiter(channel).Allow(), nil
}

// Wait blocks until a token for channel is available or ctx is done
func (l *Local) Wait(ctx context.Context, channel domain.Channel) error {
	return l.limiter(channel).Wait(ctx)
}
