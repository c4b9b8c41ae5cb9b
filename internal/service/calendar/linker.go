package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/sandevgo/memobot/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context, itemIDs []string, eventID, personID string, at time.Time) (core.Trigger, error)
	Cancel(ctx context.Context, triggerID string) (bool, error)
}

// LinkResult describes the reminder attached to an item, if any.
type LinkResult struct {
	Linked    bool                `json:"linked"`
	Event     *core.CalendarEvent `json:"event,omitempty"`
	TriggerAt time.Time           `json:"trigger_at,omitzero"`
	TriggerID string              `json:"trigger_id,omitempty"`
}

// Linker binds person-related items without an explicit time to the next
// meeting with that person.
type Linker struct {
	events    core.EventRepository
	items     core.ItemRepository
	triggers  core.TriggerRepository
	scheduler scheduler
	clock     clock.Clock
	offset    time.Duration
}

func NewLinker(
	events core.EventRepository,
	items core.ItemRepository,
	triggers core.TriggerRepository,
	sched scheduler,
	clk clock.Clock,
	cfg *config.EngineConfig,
) *Linker {
	return &Linker{
		events:    events,
		items:     items,
		triggers:  triggers,
		scheduler: sched,
		clock:     clk,
		offset:    cfg.LinkOffset,
	}
}

// LinkIfNeeded schedules a reminder ahead of the earliest upcoming event with
// the item's person. Events already reminded for this item are passed over,
// and an explicit (postponed) trigger is left alone. A closer event
// supersedes the trigger bound to a later one.
func (l *Linker) LinkIfNeeded(ctx context.Context, item core.MemoryItem) (LinkResult, error) {
	if item.Status != core.StatusPending || item.PersonID == "" || item.DueAt != nil {
		return LinkResult{}, nil
	}

	history, err := l.triggers.ListByItem(ctx, item.ID)
	if err != nil {
		return LinkResult{}, err
	}
	done := make(map[string]bool)
	var bound []core.Trigger
	for _, t := range history {
		switch {
		case t.State == core.TriggerSent || t.State == core.TriggerSkipped:
			done[t.EventID] = true
		case t.State.Terminal():
		case t.EventID == "":
			return LinkResult{}, nil
		case t.ItemKey == item.ID:
			bound = append(bound, t)
		}
	}

	now := l.clock.Now()
	upcoming, err := l.events.ListUpcomingForPerson(ctx, item.PersonID, now)
	if err != nil {
		return LinkResult{}, err
	}

	var next *core.CalendarEvent
	for i := range upcoming {
		if !done[upcoming[i].ID] {
			next = &upcoming[i]
			break
		}
	}
	if next == nil {
		return LinkResult{}, nil
	}

	at := next.StartAt.Add(-l.offset)
	if at.Before(now) {
		at = now
	}

	res := LinkResult{Linked: true, Event: next, TriggerAt: at}
	t, err := l.scheduler.Schedule(ctx, []string{item.ID}, next.ID, item.PersonID, at)
	switch {
	case errors.Is(err, core.ErrConflictingUpdate):
		// Already being dispatched for this event.
		res.TriggerID = t.ID
		res.TriggerAt = t.TriggerAt
		return res, nil
	case err != nil:
		return LinkResult{}, err
	}
	res.TriggerID = t.ID

	for _, old := range bound {
		if old.EventID == next.ID || old.State != core.TriggerScheduled {
			continue
		}
		if _, err := l.scheduler.Cancel(ctx, old.ID); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("trigger_id", old.ID).Msg("failed to cancel superseded trigger")
		}
	}

	log.FromCtx(ctx).Debug().
		Str("item_id", item.ID).
		Str("event_id", next.ID).
		Time("trigger_at", at).
		Msg("item linked to upcoming event")
	return res, nil
}

// LinkPerson re-runs linking for every pending item of personID, e.g. after a
// meeting with them was added or moved.
func (l *Linker) LinkPerson(ctx context.Context, personID string) (int, error) {
	items, err := l.items.List(ctx, core.ItemFilter{PersonID: personID, Status: core.StatusPending})
	if err != nil {
		return 0, err
	}

	var (
		linked int
		errs   []error
	)
	for _, it := range items {
		res, err := l.LinkIfNeeded(ctx, it)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res.Linked {
			linked++
		}
	}
	return linked, errors.Join(errs...)
}

// LinkUnlinked links pending items that have no active trigger at all.
func (l *Linker) LinkUnlinked(ctx context.Context, limit int) (int, error) {
	items, err := l.items.ListUnlinkedPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	var (
		linked int
		errs   []error
	)
	for _, it := range items {
		res, err := l.LinkIfNeeded(ctx, it)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res.Linked {
			linked++
		}
	}
	return linked, errors.Join(errs...)
}
