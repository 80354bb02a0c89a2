package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// NotificationService is the entry point for delivering one notification over
// several channels. Channel failures never fail the call; only an invalid
// request does.
type NotificationService struct {
	registry   *Registry
	dispatcher *dispatcher
	all        *AllStrategy
	logger     *slog.Logger
}

// DispatchResult is the outcome of a single Dispatch call
type DispatchResult struct {
	RequestID uuid.UUID                   `json:"request_id"`
	Results   []domain.NotificationResult `json:"results"`
	Succeeded int                         `json:"succeeded"`
	Failed    int                         `json:"failed"`
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(registry *Registry, cfg config.DispatchConfig, logger *slog.Logger) *NotificationService {
	d := &dispatcher{
		registry: registry,
		timeout:  cfg.ChannelTimeout,
		logger:   logger,
	}
	return &NotificationService{
		registry:   registry,
		dispatcher: d,
		all:        &AllStrategy{dispatcher: d},
		logger:     logger,
	}
}

// SetResultBroadcast sets the function called for every completed channel
// send. It runs on its own goroutine, concurrently with other events, and
// must be set before the first Send.
func (s *NotificationService) SetResultBroadcast(fn func(event ResultEvent)) {
	s.dispatcher.broadcast = fn
}

// Channels returns the channels that have a registered strategy
func (s *NotificationService) Channels() []domain.Channel {
	return s.registry.Channels()
}

// Send delivers req over every requested channel and returns one result per
// effective concrete channel.
func (s *NotificationService) Send(ctx context.Context, req *domain.NotificationRequest) ([]domain.NotificationResult, error) {
	dispatch, err := s.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return dispatch.Results, nil
}

// Dispatch is Send with a request id and success counters attached
func (s *NotificationService) Dispatch(ctx context.Context, req *domain.NotificationRequest) (*DispatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch notification: %w", err)
	}

	requestID := uuid.New()
	logger := s.logger.With("request_id", requestID)

	var results []domain.NotificationResult
	if domain.ContainsAll(req.Channels) {
		// every explicitly requested channel is already part of the full set
		results = s.all.SendAll(ctx, requestID, req)
	} else {
		results = s.dispatcher.fanOut(ctx, requestID, req, domain.ExpandChannels(req.Channels))
	}

	dispatch := &DispatchResult{
		RequestID: requestID,
		Results:   results,
	}
	for _, r := range results {
		if r.Success {
			dispatch.Succeeded++
		} else {
			dispatch.Failed++
		}
	}

	logger.Info("notification dispatched",
		"channels", len(results),
		"succeeded", dispatch.Succeeded,
		"failed", dispatch.Failed,
	)

	return dispatch, nil
}
