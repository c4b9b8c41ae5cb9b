package main

import (
	"context"
	"fmt"

	"github.com/sandevgo/memobot/internal/service/command"
	"github.com/sandevgo/memobot/internal/service/ui"
	"github.com/spf13/cobra"
)

var closeOpts struct {
	event   string
	archive bool
}

var closeCmd = &cobra.Command{
	Use:   "close <id...>",
	Short: "Mark items as discussed (ids may be short prefixes)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, func(ctx context.Context, e *engine) error {
			ids, err := command.ResolveIDs(ctx, e.memory, args)
			if err != nil {
				return err
			}

			if closeOpts.archive {
				report, err := e.memory.Archive(ctx, ids)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.OKStyle.Render(fmt.Sprintf("archived %d", len(report.Closed))))
				return nil
			}

			report, err := e.memory.Close(ctx, ids, closeOpts.event)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.OKStyle.Render(fmt.Sprintf("closed %d, cancelled %d reminder(s)", len(report.Closed), report.CancelledTriggers)))
			for _, id := range report.Skipped {
				fmt.Fprintln(out, ui.WarnStyle.Render("not pending: "+command.ShortID(id)))
			}
			for _, id := range report.NotFound {
				fmt.Fprintln(out, ui.WarnStyle.Render("not found: "+command.ShortID(id)))
			}
			return nil
		})
	},
}

func init() {
	closeCmd.Flags().StringVar(&closeOpts.event, "event", "", "calendar event where the items were discussed")
	closeCmd.Flags().BoolVar(&closeOpts.archive, "archive", false, "archive instead of marking as discussed")
	rootCmd.AddCommand(closeCmd)
}
