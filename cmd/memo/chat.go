package main

import (
	"context"

	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/transport/cli"
	"github.com/sandevgo/memobot/pkg/srv"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long:  `Interactive chat with the same commands as Telegram. Due reminders are printed in the chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := bootstrap(cmd, cmd.ErrOrStderr())
		defer done()

		app := config.NewAppConfig(ctx)
		console := cli.NewConsole(nil)
		e, err := newEngine(ctx, app, console)
		if err != nil {
			return err
		}
		defer e.close(ctx)

		rl, err := cli.NewReadLine(e.assistant, app)
		if err != nil {
			return err
		}
		defer rl.Shutdown(ctx)
		console.SetOutput(rl.Stdout())

		ticker := srv.NewTicker("reminder_tick", e.cfg.TickInterval, true, e.scheduler.RunTick)
		tickCtx, stopTick := context.WithCancel(ctx)
		tickDone := make(chan struct{})
		go func() {
			defer close(tickDone)
			_ = ticker.Start(tickCtx)
		}()
		defer func() {
			stopTick()
			<-tickDone
		}()

		return rl.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
