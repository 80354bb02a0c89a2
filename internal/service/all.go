package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// AllStrategy sends a request over every concrete channel as one unit. It is
// not registered in the Registry; the orchestrator calls it directly when
// ChannelAll is requested. Results are tagged with their concrete channel.
type AllStrategy struct {
	dispatcher *dispatcher
}

func (a *AllStrategy) Channel() domain.Channel { return domain.ChannelAll }

// SendAll fans req out to every concrete channel. Channels without a
// registered strategy are reported as failed.
func (a *AllStrategy) SendAll(ctx context.Context, requestID uuid.UUID, req *domain.NotificationRequest) []domain.NotificationResult {
	return a.dispatcher.fanOut(ctx, requestID, req, domain.ConcreteChannels())
}
