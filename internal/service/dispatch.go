package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// ResultEvent is published once for every completed channel send. Events are
// delivered asynchronously and may arrive after Send has returned.
type ResultEvent struct {
	RequestID uuid.UUID                 `json:"request_id"`
	Result    domain.NotificationResult `json:"result"`
	Duration  time.Duration             `json:"duration"`
}

// dispatcher runs channel sends concurrently. It is the single fan-out path
// shared by the orchestrator and the all-channels strategy.
type dispatcher struct {
	registry  *Registry
	timeout   time.Duration
	logger    *slog.Logger
	broadcast func(event ResultEvent)
}

// fanOut sends req over every channel and waits for all of them. It returns
// exactly one result per channel, ordered canonically.
func (d *dispatcher) fanOut(ctx context.Context, requestID uuid.UUID, req *domain.NotificationRequest, channels []domain.Channel) []domain.NotificationResult {
	results := newResultSet(len(channels))
	if len(channels) == 0 {
		return results.list()
	}

	var wg sync.WaitGroup
	for _, channel := range channels {
		wg.Add(1)
		go func(channel domain.Channel) {
			defer wg.Done()

			start := time.Now()
			result := d.sendOne(ctx, channel, req)
			duration := time.Since(start)

			results.add(result)
			d.record(requestID, result, duration)
		}(channel)
	}
	wg.Wait()

	return results.list()
}

// sendOne is the per-channel error boundary: resolution failures, panics,
// deadlines and cancellation all end up as a failed result.
func (d *dispatcher) sendOne(ctx context.Context, channel domain.Channel, req *domain.NotificationRequest) domain.NotificationResult {
	strategy, err := d.registry.Resolve(channel)
	if err != nil {
		return domain.Failed(channel, err.Error())
	}

	if ctx.Err() != nil {
		return cancelledResult(ctx, channel)
	}

	sendCtx, cancel := ctx, context.CancelFunc(func() {})
	if d.timeout > 0 {
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
	}
	defer cancel()

	// buffered so a strategy that ignores cancellation can still finish
	done := make(chan domain.NotificationResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				d.logger.Error("strategy panicked",
					"channel", channel,
					"panic", p,
					"stack", string(debug.Stack()),
				)
				done <- domain.Failed(channel, fmt.Sprintf("internal error in %s strategy", channel))
			}
		}()
		done <- strategy.Send(sendCtx, req)
	}()

	select {
	case result := <-done:
		return normalizeResult(channel, result)
	case <-sendCtx.Done():
		select {
		case result := <-done:
			return normalizeResult(channel, result)
		default:
		}
		if ctx.Err() != nil {
			return cancelledResult(ctx, channel)
		}
		return domain.Failed(channel, fmt.Sprintf("timed out after %s", d.timeout))
	}
}

func (d *dispatcher) record(requestID uuid.UUID, result domain.NotificationResult, duration time.Duration) {
	logger := d.logger.With(
		"request_id", requestID,
		"channel", result.Channel,
		"duration_ms", duration.Milliseconds(),
	)
	if result.Success {
		logger.Info("channel send succeeded", "external_reference", result.ExternalReference)
	} else {
		logger.Warn("channel send failed", "error", result.ErrorMessage)
	}

	if d.broadcast != nil {
		go d.publish(ResultEvent{
			RequestID: requestID,
			Result:    result,
			Duration:  duration,
		})
	}
}

// publish runs the result listener off the dispatch path. A slow listener
// never delays Send and a panicking one is logged, not propagated.
func (d *dispatcher) publish(event ResultEvent) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("result listener panicked",
				"request_id", event.RequestID,
				"channel", event.Result.Channel,
				"panic", p,
				"stack", string(debug.Stack()),
			)
		}
	}()
	d.broadcast(event)
}

func cancelledResult(ctx context.Context, channel domain.Channel) domain.NotificationResult {
	return domain.Failed(channel, fmt.Sprintf("%s: %v", domain.ErrCancelled, context.Cause(ctx)))
}

// normalizeResult pins a strategy's result to the channel that was dispatched
// and keeps the success/error fields consistent.
func normalizeResult(channel domain.Channel, r domain.NotificationResult) domain.NotificationResult {
	if r.Success {
		return domain.Succeeded(channel, r.ExternalReference, r.Metadata)
	}
	failed := domain.Failed(channel, r.ErrorMessage)
	failed.Metadata = r.Metadata
	return failed
}

// resultSet collects one result per channel from concurrent senders
type resultSet struct {
	mu      sync.Mutex
	results map[domain.Channel]domain.NotificationResult
}

func newResultSet(size int) *resultSet {
	return &resultSet{results: make(map[domain.Channel]domain.NotificationResult, size)}
}

func (s *resultSet) add(r domain.NotificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.Channel] = r
}

func (s *resultSet) list() []domain.NotificationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.NotificationResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := out[i].Channel.Order(), out[j].Channel.Order()
		if oi != oj {
			return oi < oj
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}
