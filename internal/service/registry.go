package service

import (
	"fmt"
	"sort"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// Registry maps each concrete channel to the strategy that delivers it. It is
// built once at startup and read-only afterwards.
type Registry struct {
	strategies map[domain.Channel]domain.Strategy
}

// NewRegistry creates a Registry from the given strategies. Registering the
// meta channel, an invalid channel or the same channel twice is an error.
func NewRegistry(strategies ...domain.Strategy) (*Registry, error) {
	r := &Registry{
		strategies: make(map[domain.Channel]domain.Strategy, len(strategies)),
	}

	for _, s := range strategies {
		if s == nil {
			return nil, fmt.Errorf("register strategy: %w", domain.NewValidationError("strategy", "strategy is nil"))
		}
		channel := s.Channel()
		if !channel.IsConcrete() {
			return nil, fmt.Errorf("register %q: %w", channel, domain.ErrUnknownChannel)
		}
		if _, exists := r.strategies[channel]; exists {
			return nil, fmt.Errorf("register %q: %w", channel, domain.ErrDuplicateChannel)
		}
		r.strategies[channel] = s
	}

	return r, nil
}

// Resolve returns the strategy registered for a concrete channel. ChannelAll
// must be expanded by the caller and is never resolvable.
func (r *Registry) Resolve(channel domain.Channel) (domain.Strategy, error) {
	if s, ok := r.strategies[channel]; ok {
		return s, nil
	}
	if channel == domain.ChannelAll {
		return nil, fmt.Errorf("%w: %q must be expanded before resolving", domain.ErrUnknownChannel, channel)
	}
	return nil, fmt.Errorf("%w: no strategy registered for %q", domain.ErrUnknownChannel, channel)
}

// Channels returns the registered channels in canonical order
func (r *Registry) Channels() []domain.Channel {
	channels := make([]domain.Channel, 0, len(r.strategies))
	for c := range r.strategies {
		channels = append(channels, c)
	}
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].Order() < channels[j].Order()
	})
	return channels
}
