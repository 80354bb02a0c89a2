// Package app assembles the dispatcher from configuration. The HTTP server
// and the command line client share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
	"github.com/insider-one/notification-dispatcher/internal/provider"
	"github.com/insider-one/notification-dispatcher/internal/ratelimit"
	"github.com/insider-one/notification-dispatcher/internal/repository/postgres"
	"github.com/insider-one/notification-dispatcher/internal/repository/redis"
	"github.com/insider-one/notification-dispatcher/internal/service"
	"github.com/insider-one/notification-dispatcher/internal/strategy"
)

const (
	recordTimeout   = 5 * time.Second
	recordQueueSize = 256
)

// HealthChecker is implemented by every backing store
type HealthChecker interface {
	Health(ctx context.Context) error
}

// App holds the wired service and the resources it owns
type App struct {
	Service *service.NotificationService
	// Deliveries is nil unless a database is configured
	Deliveries domain.DeliveryRepository
	Checkers   map[string]HealthChecker

	logger    *slog.Logger
	closers   []func()
	mu        sync.RWMutex
	listeners []func(service.ResultEvent)
}

// clients are the provider clients selected by the provider mode. A nil
// client leaves its channels unregistered.
type clients struct {
	messaging domain.MessagingClient
	email     domain.EmailClient
	push      domain.PushClient
}

// Build wires providers, strategies, rate limiting, the optional delivery log
// and the notification service. Close must be called when Build succeeds.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Checkers: make(map[string]HealthChecker),
		logger:   logger,
	}

	c, err := buildClients(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	limiter, err := a.buildLimiter(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	strategies := buildStrategies(cfg, c, logger)
	if limiter != nil {
		for i, s := range strategies {
			strategies[i] = strategy.NewRateLimited(s, limiter, logger)
		}
	}

	registry, err := service.NewRegistry(strategies...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register strategies: %w", err)
	}
	if len(strategies) == 0 {
		logger.Warn("no delivery channel is configured", "provider_mode", cfg.App.ProviderMode)
	}

	a.Service = service.NewNotificationService(registry, cfg.Dispatch, logger)
	a.Service.SetResultBroadcast(a.publish)

	if cfg.Database.URL != "" {
		if err := a.openDeliveryLog(ctx, cfg.Database); err != nil {
			a.Close()
			return nil, err
		}
	}

	logger.Info("dispatcher ready",
		"provider_mode", cfg.App.ProviderMode,
		"channels", registry.Channels(),
		"rate_limited", limiter != nil,
		"delivery_log", a.Deliveries != nil,
	)

	return a, nil
}

// OnResult registers fn to receive every channel result. It is safe to call
// while requests are being served.
func (a *App) OnResult(fn func(service.ResultEvent)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) publish(event service.ResultEvent) {
	a.mu.RLock()
	listeners := a.listeners
	a.mu.RUnlock()

	for _, fn := range listeners {
		a.notify(fn, event)
	}
}

// notify isolates listeners from each other
func (a *App) notify(fn func(service.ResultEvent), event service.ResultEvent) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("result listener panicked",
				"request_id", event.RequestID,
				"channel", event.Result.Channel,
				"panic", p,
			)
		}
	}()
	fn(event)
}

// Close releases every connection the App opened
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func buildClients(ctx context.Context, cfg *config.Config, logger *slog.Logger) (clients, error) {
	switch cfg.App.ProviderMode {
	case config.ProviderModeWebhook, "":
		webhook := provider.NewWebhookProvider(cfg.Webhook)
		return clients{messaging: webhook, email: webhook, push: webhook}, nil

	case config.ProviderModeLive:
		var c clients
		if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
			c.messaging = provider.NewTwilioClient(cfg.Twilio)
		} else {
			logger.Warn("twilio is not configured, sms and whatsapp are disabled")
		}

		if cfg.SendGrid.APIKey != "" && cfg.SendGrid.FromAddress != "" {
			c.email = provider.NewSendGridClient(cfg.SendGrid)
		} else {
			logger.Warn("sendgrid is not configured, email is disabled")
		}

		if cfg.FCM.ProjectID != "" {
			ts, err := provider.LoadFCMTokenSource(ctx, cfg.FCM)
			if err != nil {
				logger.Warn("fcm credentials unavailable, push is disabled", "error", err)
			} else {
				c.push = provider.NewFCMClient(cfg.FCM, ts)
			}
		} else {
			logger.Warn("fcm is not configured, push is disabled")
		}
		return c, nil

	default:
		return clients{}, fmt.Errorf("unknown provider mode %q", cfg.App.ProviderMode)
	}
}

func buildStrategies(cfg *config.Config, c clients, logger *slog.Logger) []domain.Strategy {
	var strategies []domain.Strategy
	if c.messaging != nil {
		strategies = append(strategies,
			strategy.NewSMSStrategy(c.messaging, cfg.SMS, logger),
			strategy.NewWhatsAppStrategy(c.messaging, cfg.WhatsApp, logger),
		)
	}
	if c.email != nil {
		strategies = append(strategies, strategy.NewEmailStrategy(c.email, logger))
	}
	if c.push != nil {
		strategies = append(strategies, strategy.NewPushStrategy(c.push, logger))
	}
	return strategies
}

// buildLimiter returns nil when rate limiting is disabled. Redis is used when
// configured so the limit holds across instances.
func (a *App) buildLimiter(ctx context.Context, cfg *config.Config) (domain.RateLimiter, error) {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.PerSec <= 0 {
		return nil, nil
	}

	if cfg.Redis.URL == "" {
		return ratelimit.NewLocal(cfg.RateLimit.PerSec, cfg.RateLimit.Burst), nil
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.Checkers["redis"] = client
	a.logger.Info("connected to Redis")

	return redis.NewRateLimiter(client, cfg.RateLimit.PerSec), nil
}

func (a *App) openDeliveryLog(ctx context.Context, cfg config.DatabaseConfig) error {
	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.URL); err != nil {
			return err
		}
	}

	db, err := postgres.New(ctx, cfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Close)
	a.Checkers["postgres"] = db
	a.logger.Info("connected to PostgreSQL")

	repo := postgres.NewDeliveryRepository(db)
	a.Deliveries = repo

	// closers run in reverse, so the queue drains before the pool closes
	recorder := newDeliveryRecorder(recordDelivery(repo, a.logger), recordQueueSize, a.logger)
	go recorder.run()
	a.closers = append(a.closers, recorder.stop)
	a.OnResult(recorder.enqueue)
	return nil
}

// deliveryRecorder writes delivery records on a single worker so database
// latency stays off the dispatch path.
type deliveryRecorder struct {
	record func(service.ResultEvent)
	queue  chan service.ResultEvent
	done   chan struct{}
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func newDeliveryRecorder(record func(service.ResultEvent), size int, logger *slog.Logger) *deliveryRecorder {
	return &deliveryRecorder{
		record: record,
		queue:  make(chan service.ResultEvent, size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// enqueue never blocks. Events are dropped when the queue is full or the
// recorder has stopped.
func (r *deliveryRecorder) enqueue(event service.ResultEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- event:
	default:
		r.logger.Warn("delivery log queue full, dropping record",
			"request_id", event.RequestID,
			"channel", event.Result.Channel,
		)
	}
}

func (r *deliveryRecorder) run() {
	defer close(r.done)
	for event := range r.queue {
		r.safeRecord(event)
	}
}

func (r *deliveryRecorder) safeRecord(event service.ResultEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("delivery recorder panicked", "panic", p)
		}
	}()
	r.record(event)
}

// stop drains the queue and waits for the worker to finish
func (r *deliveryRecorder) stop() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

// recordDelivery stores each result in the delivery log. Failures are logged
// and never affect the dispatch.
func recordDelivery(repo domain.DeliveryRepository, logger *slog.Logger) func(service.ResultEvent) {
	return func(event service.ResultEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		err := repo.Record(ctx, &domain.DeliveryRecord{
			RequestID: event.RequestID,
			Result:    event.Result,
			Duration:  event.Duration,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("failed to record delivery",
				"request_id", event.RequestID,
				"channel", event.Result.Channel,
				"error", err,
			)
		}
	}
}
