package main

import (
	"context"
	"fmt"

	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/pkg/conv"
	"github.com/spf13/cobra"
)

// runOnce wires the engine for a single command and tears it down after.
func runOnce(cmd *cobra.Command, fn func(ctx context.Context, e *engine) error) error {
	ctx, done := bootstrap(cmd, cmd.ErrOrStderr())
	defer done()

	app := config.NewAppConfig(ctx)
	dispatcher, _, err := newDispatcher(ctx, app)
	if err != nil {
		return err
	}
	e, err := newEngine(ctx, app, dispatcher)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	return fn(ctx, e)
}

// printMarkdown writes a chat reply to the terminal as plain text.
func printMarkdown(cmd *cobra.Command, md string) {
	fmt.Fprintln(cmd.OutOrStdout(), conv.MarkdownToText(md))
}

// routeCommand runs a chat slash command from the CLI.
func routeCommand(cmd *cobra.Command, line string) error {
	return runOnce(cmd, func(ctx context.Context, e *engine) error {
		reply, _ := e.router.Execute(ctx, line)
		printMarkdown(cmd, reply)
		return nil
	})
}
