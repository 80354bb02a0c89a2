package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newChannelsCommand(open func(*cobra.Command) (Dispatcher, func(), error)) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the channels the current configuration can deliver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dispatcher, release, err := open(cmd)
			if err != nil {
				return err
			}
			defer release()

			channels := dispatcher.Channels()
			if len(channels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No channels configured.")
				return nil
			}
			for _, c := range channels {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}
