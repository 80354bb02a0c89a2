package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/insider-one/notification-dispatcher/internal/app"
	"github.com/insider-one/notification-dispatcher/internal/cli"
	"github.com/insider-one/notification-dispatcher/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(func(ctx context.Context, logger *slog.Logger) (cli.Dispatcher, func(), error) {
		a, err := app.Build(ctx, config.Load(), logger)
		if err != nil {
			return nil, nil, err
		}
		return a.Service, a.Close, nil
	})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
