package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/command"
	"github.com/sandevgo/memobot/internal/service/ui"
	"github.com/spf13/cobra"
)

var eventOpts struct {
	person    string
	start     string
	minutes   int
	attendees []string
}

var eventCmd = &cobra.Command{
	Use:     "event <title>",
	Short:   "Add a meeting; pending items for the person get a reminder before it",
	Example: `  memo event "1:1 Toni" --person Toni --start "2026-03-03 09:00"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := command.ParseTime(eventOpts.start, time.Local)
		if err != nil {
			return err
		}
		ev := core.CalendarEvent{
			Title:     args[0],
			StartAt:   start,
			EndAt:     start.Add(time.Duration(eventOpts.minutes) * time.Minute),
			Attendees: eventOpts.attendees,
		}

		return runOnce(cmd, func(ctx context.Context, e *engine) error {
			res, err := e.calendar.Upsert(ctx, ev, eventOpts.person)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.OKStyle.Render(fmt.Sprintf(
				"event %s at %s, %d item(s) linked",
				command.ShortID(res.Event.ID), res.Event.StartAt.In(time.Local).Format("02/01 15:04"), res.Linked)))
			return nil
		})
	},
}

func init() {
	f := eventCmd.Flags()
	f.StringVarP(&eventOpts.person, "person", "p", "", "person the meeting is with")
	f.StringVar(&eventOpts.start, "start", "", `start time, RFC3339 or "2006-01-02 15:04"`)
	f.IntVar(&eventOpts.minutes, "minutes", 30, "duration in minutes")
	f.StringSliceVar(&eventOpts.attendees, "attendee", nil, "attendee name or email (repeatable)")
	_ = eventCmd.MarkFlagRequired("start")
	rootCmd.AddCommand(eventCmd)
}
