package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/insider-one/notification-dispatcher/internal/app"
	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/handler"
	"github.com/insider-one/notification-dispatcher/internal/middleware"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting notification dispatcher",
		"env", cfg.App.Env,
		"port", cfg.Server.Port,
		"provider_mode", cfg.App.ProviderMode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise dispatcher", "error", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	metrics := handler.NewMetrics()
	wsHub := handler.NewWebSocketHub(logger)
	go wsHub.Run(ctx)

	dispatcher.OnResult(metrics.RecordResult)
	dispatcher.OnResult(wsHub.BroadcastResult)

	notificationHandler := handler.NewNotificationHandler(dispatcher.Service, dispatcher.Deliveries, metrics)
	healthHandler := handler.NewHealthHandler(func() int { return len(dispatcher.Service.Channels()) })
	for name, checker := range dispatcher.Checkers {
		healthHandler.AddChecker(name, checker)
	}
	wsHandler := handler.NewWebSocketHandler(wsHub)

	r := chi.NewRouter()

	r.Use(middleware.Correlation)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger, metrics))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	r.Handle("/metrics", metrics.Handler())

	r.Get("/ws", wsHandler.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Compress(5))
		r.Route("/notifications", notificationHandler.RegisterRoutes)
		r.Get("/channels", notificationHandler.Channels)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// in-flight dispatches finish before Shutdown returns
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	cancel()

	logger.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
