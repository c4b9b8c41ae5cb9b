package main

import (
	"context"
	"strings"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/command"
	"github.com/spf13/cobra"
)

var captureOpts struct {
	person  string
	kind    string
	summary string
	due     string
	parse   bool
}

var captureCmd = &cobra.Command{
	Use:   "capture <text>",
	Short: "Remember something, merging it with what is already pending",
	Example: `  memo capture "hablar de salarios" --person Toni
  memo capture --parse "recuérdame hablar con Toni de vacaciones"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return runOnce(cmd, func(ctx context.Context, e *engine) error {
			if captureOpts.parse {
				printMarkdown(cmd, e.assistant.Handle(ctx, text))
				return nil
			}

			req := core.CaptureRequest{
				Kind:       core.ItemKind(captureOpts.kind),
				Content:    text,
				Summary:    captureOpts.summary,
				PersonName: captureOpts.person,
				Confidence: 1,
			}
			if captureOpts.due != "" {
				due, err := command.ParseTime(captureOpts.due, time.Local)
				if err != nil {
					return err
				}
				req.DueAt = &due
			}

			o, err := e.memory.Capture(ctx, req)
			if err != nil {
				return err
			}
			printMarkdown(cmd, command.NewResponseFormatter().Outcome(o, captureOpts.person))
			return nil
		})
	},
}

func init() {
	f := captureCmd.Flags()
	f.StringVarP(&captureOpts.person, "person", "p", "", "person the note is about")
	f.StringVarP(&captureOpts.kind, "kind", "k", string(core.KindReminder), "reminder, idea or note")
	f.StringVar(&captureOpts.summary, "summary", "", "short normalized summary")
	f.StringVar(&captureOpts.due, "due", "", `explicit reminder time, RFC3339 or "2006-01-02 15:04"`)
	f.BoolVar(&captureOpts.parse, "parse", false, "treat the text as a chat message and run the intent parser")
	rootCmd.AddCommand(captureCmd)
}
