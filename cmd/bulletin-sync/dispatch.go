package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/report"
	"github.com/ignite/bulletin-sync/internal/service/bulletin"
)

var dispatchChannels []string

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Send the bulletin and start the next recurring campaign",
	Long: `Sends the bulletin template on each requested channel to every opted-in
contact, clones the recurring campaign under a timestamped name and runs
the segment update, campaign update and campaign trigger steps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		channels, err := bulletin.ParseChannels(dispatchChannels)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := buildApp(ctx, cfg, paths{dispatches: true})
		if err != nil {
			return err
		}
		defer a.close()
		return runDispatch(ctx, cmd.OutOrStdout(), a.runner, channels)
	},
}

func init() {
	dispatchCmd.Flags().StringSliceVar(&dispatchChannels, "channels", nil, "Channels to send on (email, sms). Defaults to bulletin.channels")
}

type dispatchRunner interface {
	Dispatch(ctx context.Context, channels []domain.Channel) (*bulletin.DispatchReport, error)
}

func runDispatch(ctx context.Context, out io.Writer, r dispatchRunner, channels []domain.Channel) error {
	rep, err := r.Dispatch(ctx, channels)
	if rep != nil {
		summary, renderErr := report.NewRenderer().Dispatch(rep)
		if renderErr != nil {
			return renderErr
		}
		fmt.Fprint(out, summary)
	}
	return err
}
