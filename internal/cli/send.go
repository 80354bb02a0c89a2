package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

type sendOptions struct {
	to       string
	subject  string
	body     string
	channels []string
	meta     map[string]string
	strict   bool
}

func newSendCommand(open func(*cobra.Command) (Dispatcher, func(), error)) *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Dispatch one notification and print the per-channel results",
		Long: `Dispatches a notification over every requested channel and prints the
results as JSON. Use "all" to send over every configured channel.`,
		Example: `  notifyctl send --to +15551234567 --subject OTP --body "Your code is 482913" --channel sms
  notifyctl send --to ada@example.com --subject Hi --body Hello --channel email,push --meta campaign=welcome`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}

			dispatcher, release, err := open(cmd)
			if err != nil {
				return err
			}
			defer release()

			result, err := dispatcher.Dispatch(cmd.Context(), req)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal results: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if opts.strict && result.Failed > 0 {
				return fmt.Errorf("%d of %d channels failed", result.Failed, len(result.Results))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.to, "to", "", "recipient address, phone number or device token")
	flags.StringVarP(&opts.subject, "subject", "s", "", "notification subject")
	flags.StringVarP(&opts.body, "body", "b", "", "notification body")
	flags.StringSliceVarP(&opts.channels, "channel", "c", []string{"all"}, "channels to send over")
	flags.StringToStringVar(&opts.meta, "meta", nil, "metadata as key=value pairs")
	flags.BoolVar(&opts.strict, "strict", false, "exit non-zero when any channel fails")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func (o *sendOptions) request() (*domain.NotificationRequest, error) {
	channels := make([]domain.Channel, 0, len(o.channels))
	for _, name := range o.channels {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, err := domain.ParseChannel(name)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}

	return &domain.NotificationRequest{
		Recipient: o.to,
		Subject:   o.subject,
		Body:      o.body,
		Metadata:  o.meta,
		Channels:  channels,
	}, nil
}
