package main

import (
	"context"
	"os"

	"github.com/sandevgo/memobot/internal/transport/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the memory tools over MCP stdio",
	Long:  `Runs an MCP server on stdin/stdout. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, func(ctx context.Context, e *engine) error {
			tools := mcpserver.NewTools(e.memory, e.people, e.calendar)
			return mcpserver.NewServer(tools, os.Stdin, os.Stdout).Start(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
