package main

import (
	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/transport/httpapi"
	"github.com/sandevgo/memobot/pkg/log"
	"github.com/sandevgo/memobot/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the assistant with its background workers",
	Long:  `Starts the reminder tick, the reconciliation sweep and the configured transports (Telegram, HTTP API).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := bootstrap(cmd, nil)
		defer done()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting memobot")

		app := config.NewAppConfig(ctx)
		dispatcher, bot, err := newDispatcher(ctx, app)
		if err != nil {
			return err
		}
		e, err := newEngine(ctx, app, dispatcher)
		if err != nil {
			return err
		}

		services := append([]srv.Service{}, e.services...)
		services = append(services,
			srv.NewTicker("reminder_tick", e.cfg.TickInterval, true, e.scheduler.RunTick),
			srv.NewTicker("sweep", e.cfg.SweepInterval, true, e.memory.RunSweep),
		)

		if bot != nil {
			bot.Serve(e.assistant)
			services = append(services, bot)
		}
		if app.EnableHTTP {
			services = append(services, httpapi.NewServer(app.HTTPAddr, httpapi.Deps{
				Memory:   e.memory,
				Ingester: e.assistant,
				People:   e.people,
				Calendar: e.calendar,
				History:  e.journal,
			}))
		}

		srv.StartServices(ctx, services)
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("memobot has been shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
