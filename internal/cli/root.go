// Package cli implements notifyctl, a command line client that dispatches
// notifications in-process with the same configuration as the server.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/insider-one/notification-dispatcher/internal/domain"
	"github.com/insider-one/notification-dispatcher/internal/service"
)

// Dispatcher is the notification service as seen by the commands
type Dispatcher interface {
	Dispatch(ctx context.Context, req *domain.NotificationRequest) (*service.DispatchResult, error)
	Channels() []domain.Channel
}

// Factory builds a Dispatcher for one command run. The returned function
// releases its resources.
type Factory func(ctx context.Context, logger *slog.Logger) (Dispatcher, func(), error)

// NewRootCommand creates the notifyctl command tree
func NewRootCommand(factory Factory) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "notifyctl",
		Short:         "Send notifications over SMS, WhatsApp, email and push",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log dispatch details to stderr")

	open := func(cmd *cobra.Command) (Dispatcher, func(), error) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if verbose {
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		return factory(cmd.Context(), logger)
	}

	root.AddCommand(newSendCommand(open), newChannelsCommand(open))
	return root
}
