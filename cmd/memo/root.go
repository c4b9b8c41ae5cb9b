package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/service/ui"
	"github.com/sandevgo/memobot/pkg/log"
	"github.com/spf13/cobra"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "memo",
	Short: "memobot: remembers what to talk about, and with whom",
	Long: `memobot captures notes about people, merges repeated topics and reminds
you of them before your next meeting with that person.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

// bootstrap prepares a command context: signal cancellation, the logger and
// the runtime .env file. The returned func must be deferred.
func bootstrap(cmd *cobra.Command, logOut io.Writer) (context.Context, func()) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)

	ctx, flushLog := log.NewContextWithOptions(ctx, log.Options{
		Debug: debug || config.IsDebug(),
		Out:   logOut,
	})

	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("continuing without .env")
	}

	return ctx, func() {
		flushLog()
		stop()
	}
}

func CustomizeHelp(rootCmd *cobra.Command) {
	cobra.AddTemplateFunc("StyleTitle", func(s string) string { return ui.TitleStyle.Render(s) })
	cobra.AddTemplateFunc("StyleUsage", func(s string) string { return ui.UsageStyle.Render(s) })
	cobra.AddTemplateFunc("StyleFlag", func(s string) string { return ui.FlagStyle.Render(s) })
	cobra.AddTemplateFunc("StyleDesc", func(s string) string { return ui.DescStyle.Render(s) })

	template := `
{{StyleTitle "USAGE"}}
  {{StyleUsage .UseLine}}
{{if gt (len .Commands) 0}}{{StyleTitle "AVAILABLE COMMANDS"}}
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding}} {{StyleDesc .Short}}{{end}}
{{end}}{{end}}
{{if .HasAvailableLocalFlags}}{{StyleTitle "FLAGS"}}
{{StyleFlag (.LocalFlags.FlagUsages | trimTrailingWhitespaces)}}
{{end}}
`
	rootCmd.SetHelpTemplate(template)
}
