package command

import (
	"context"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/calendar"
	"github.com/sandevgo/memobot/internal/service/memory"
)

type MemoryService interface {
	CaptureAll(ctx context.Context, reqs []core.CaptureRequest) ([]memory.Outcome, error)
	List(ctx context.Context, f core.ItemFilter) ([]core.MemoryItem, error)
	Briefing(ctx context.Context, personID, eventID string) (core.Briefing, error)
	Close(ctx context.Context, ids []string, eventID string) (memory.CloseReport, error)
	Postpone(ctx context.Context, id string, until time.Time) (core.Trigger, error)
}

type PeopleService interface {
	Lookup(ctx context.Context, name string) (core.Person, error)
	Get(ctx context.Context, id string) (core.Person, error)
}

type CalendarService interface {
	Upsert(ctx context.Context, ev core.CalendarEvent, personName string) (calendar.UpsertResult, error)
}

type Deps struct {
	Memory   MemoryService
	People   PeopleService
	Calendar CalendarService
	Location *time.Location
}

func NewCommands(d Deps) []core.Command {
	if d.Location == nil {
		d.Location = time.Local
	}
	return []core.Command{
		NewPendingCommand(d.Memory, d.People),
		NewBriefingCommand(d.Memory, d.People),
		NewDoneCommand(d.Memory),
		NewSnoozeCommand(d.Memory),
		NewEventCommand(d.Calendar, d.Location),
	}
}
