package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

var tickSweep bool

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Dispatch due reminders once (for cron-driven setups)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, func(ctx context.Context, e *engine) error {
			out := map[string]any{}
			if tickSweep {
				sweep, err := e.memory.Sweep(ctx)
				if err != nil {
					return err
				}
				out["sweep"] = sweep
			}

			report, err := e.scheduler.Tick(ctx)
			if err != nil {
				return err
			}
			out["tick"] = report

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		})
	},
}

func init() {
	tickCmd.Flags().BoolVar(&tickSweep, "sweep", false, "run the reconciliation sweep first")
	rootCmd.AddCommand(tickCmd)
}
