package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sandevgo/memobot/internal/core"
)

type EventCommand struct {
	calendar  CalendarService
	location  *time.Location
	formatter *ResponseFormatter
}

func NewEventCommand(cal CalendarService, loc *time.Location) *EventCommand {
	return &EventCommand{calendar: cal, location: loc, formatter: NewResponseFormatter()}
}

func (c *EventCommand) Name() string {
	return "event"
}

func (c *EventCommand) Description() string {
	return "Añade una reunión con una persona"
}

func (c *EventCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 || len(args) > 3 {
		return c.formatter.Combine(
			c.formatter.Usage("/event <nombre> <inicio> [minutos]"),
			c.formatter.Examples([]string{
				"/event Toni 2026-03-05T10:00:00+01:00",
				"/event Toni 2026-03-05T10:00 45",
			}),
		), nil
	}

	start, err := ParseTime(args[1], c.location)
	if err != nil {
		return "", err
	}
	ev := core.CalendarEvent{Title: "Reunión con " + args[0], StartAt: start}
	if len(args) == 3 {
		minutes, err := strconv.Atoi(args[2])
		if err != nil || minutes <= 0 {
			return "", fmt.Errorf("%w: minutos inválidos %q", core.ErrInvalidInput, args[2])
		}
		ev.EndAt = start.Add(time.Duration(minutes) * time.Minute)
	}

	res, err := c.calendar.Upsert(ctx, ev, args[0])
	if err != nil {
		return "", err
	}
	msg := c.formatter.Success(fmt.Sprintf("Reunión guardada: %s", res.Event.StartAt.In(c.location).Format("02/01 15:04")))
	if res.Linked > 0 {
		msg += fmt.Sprintf("Te recordaré %d tema(s) pendientes antes.\n", res.Linked)
	}
	return msg, nil
}

// ParseTime accepts RFC 3339, or a local "2006-01-02T15:04" / "2006-01-02 15:04".
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: fecha inválida %q", core.ErrInvalidInput, s)
}
