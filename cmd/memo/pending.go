package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending [person]",
	Short: "List pending items, grouped by person",
	RunE: func(cmd *cobra.Command, args []string) error {
		return routeCommand(cmd, strings.TrimSpace("/pending "+strings.Join(args, " ")))
	},
}

var briefingCmd = &cobra.Command{
	Use:   "briefing <person>",
	Short: "What is pending and recently discussed with a person",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return routeCommand(cmd, "/briefing "+strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd, briefingCmd)
}
