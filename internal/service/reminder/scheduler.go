package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/sandevgo/memobot/pkg/log"
	"github.com/sandevgo/memobot/pkg/retry"
)

// Scheduler owns reminder triggers: creating them, moving them and firing
// them through the dispatcher.
type Scheduler struct {
	triggers   core.TriggerRepository
	items      core.ItemRepository
	people     core.PersonRepository
	events     core.EventRepository
	dispatcher core.Dispatcher
	journal    core.Journal
	clock      clock.Clock
	cfg        *config.EngineConfig
	backoff    *retry.Config
}

type Deps struct {
	Triggers   core.TriggerRepository
	Items      core.ItemRepository
	People     core.PersonRepository
	Events     core.EventRepository
	Dispatcher core.Dispatcher
	Journal    core.Journal
	Clock      clock.Clock
}

func NewScheduler(d Deps, cfg *config.EngineConfig) *Scheduler {
	return &Scheduler{
		triggers:   d.Triggers,
		items:      d.Items,
		people:     d.People,
		events:     d.Events,
		dispatcher: d.Dispatcher,
		journal:    d.Journal,
		clock:      d.Clock,
		cfg:        cfg,
		backoff:    cfg.DispatchBackoff(),
	}
}

// ItemKey is the canonical key of an item set: sorted, unique, comma joined.
func ItemKey(ids []string) string {
	return strings.Join(uniqueSorted(ids), ",")
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Schedule creates the trigger for (items, event) or moves the active one to
// at. An empty eventID means an explicit time not bound to a meeting.
func (s *Scheduler) Schedule(ctx context.Context, itemIDs []string, eventID, personID string, at time.Time) (core.Trigger, error) {
	ids := uniqueSorted(itemIDs)
	if len(ids) == 0 {
		return core.Trigger{}, fmt.Errorf("%w: trigger needs at least one item", core.ErrInvalidInput)
	}
	if at.IsZero() {
		return core.Trigger{}, fmt.Errorf("%w: trigger time is required", core.ErrInvalidInput)
	}

	now := s.clock.Now()
	t, err := s.triggers.Schedule(ctx, core.Trigger{
		ID:        uuid.NewString(),
		ItemKey:   strings.Join(ids, ","),
		ItemIDs:   ids,
		EventID:   eventID,
		PersonID:  personID,
		TriggerAt: at.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		// On a conflict t is the in-flight trigger for the pair.
		return t, err
	}

	log.FromCtx(ctx).Debug().
		Str("trigger_id", t.ID).
		Str("item_key", t.ItemKey).
		Str("event_id", eventID).
		Time("trigger_at", t.TriggerAt).
		Msg("trigger scheduled")
	return t, nil
}

// Cancel stops a scheduled trigger. Cancelling an in-flight or finished
// trigger is a no-op and reports false.
func (s *Scheduler) Cancel(ctx context.Context, triggerID string) (bool, error) {
	return s.triggers.Cancel(ctx, triggerID, s.clock.Now())
}

// ActiveFor returns the scheduled or in-flight triggers that cover itemID.
func (s *Scheduler) ActiveFor(ctx context.Context, itemID string) ([]core.Trigger, error) {
	return s.triggers.ListActiveByItem(ctx, itemID)
}

// CancelIfClosed cancels the active triggers of itemIDs that no longer cover
// any pending item. It returns the number of cancelled triggers.
func (s *Scheduler) CancelIfClosed(ctx context.Context, itemIDs []string) (int, error) {
	seen := make(map[string]struct{})
	var (
		cancelled int
		errs      []error
	)
	for _, itemID := range itemIDs {
		active, err := s.triggers.ListActiveByItem(ctx, itemID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, t := range active {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}

			ok, err := s.cancelIfClosed(ctx, t)
			if err != nil {
				errs = append(errs, err)
			}
			if ok {
				cancelled++
			}
		}
	}
	return cancelled, errors.Join(errs...)
}

func (s *Scheduler) cancelIfClosed(ctx context.Context, t core.Trigger) (bool, error) {
	if t.State != core.TriggerScheduled {
		return false, nil
	}
	items, err := s.items.GetMany(ctx, t.ItemIDs)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.Status == core.StatusPending {
			return false, nil
		}
	}
	ok, err := s.triggers.Cancel(ctx, t.ID, s.clock.Now())
	if ok {
		log.FromCtx(ctx).Debug().Str("trigger_id", t.ID).Msg("trigger cancelled, no pending items left")
	}
	return ok, err
}

// CancelStale walks scheduled triggers and cancels those whose items have all
// left pending.
func (s *Scheduler) CancelStale(ctx context.Context, limit int) (int, error) {
	active, err := s.triggers.ListActive(ctx, limit)
	if err != nil {
		return 0, err
	}
	var (
		n    int
		errs []error
	)
	for _, t := range active {
		ok, err := s.cancelIfClosed(ctx, t)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// Postpone moves the reminder for a pending item to until. An explicit
// trigger covering only this item is moved. Meeting-bound triggers covering
// only this item are cancelled and replaced by an explicit one, so relinking
// to a meeting can not pull the reminder back before until.
func (s *Scheduler) Postpone(ctx context.Context, item core.MemoryItem, until time.Time) (core.Trigger, error) {
	if item.Status != core.StatusPending {
		return core.Trigger{}, fmt.Errorf("%w: item %s is %s", core.ErrInvalidInput, item.ID, item.Status)
	}
	if !until.After(s.clock.Now()) {
		return core.Trigger{}, fmt.Errorf("%w: postpone time must be in the future", core.ErrInvalidInput)
	}

	active, err := s.triggers.ListActiveByItem(ctx, item.ID)
	if err != nil {
		return core.Trigger{}, err
	}

	var moved *core.Trigger
	for _, t := range active {
		if t.State != core.TriggerScheduled || t.ItemKey != item.ID {
			continue
		}
		if t.EventID != "" {
			if _, err := s.triggers.Cancel(ctx, t.ID, s.clock.Now()); err != nil {
				return core.Trigger{}, err
			}
			log.FromCtx(ctx).Debug().
				Str("trigger_id", t.ID).
				Str("event_id", t.EventID).
				Msg("meeting trigger cancelled by postpone")
			continue
		}
		ok, err := s.triggers.Reschedule(ctx, t.ID, until.UTC(), s.clock.Now())
		if err != nil {
			return core.Trigger{}, err
		}
		if ok && moved == nil {
			t.TriggerAt = until.UTC()
			t.NextAttemptAt = until.UTC()
			moved = &t
		}
	}

	result := core.Trigger{}
	if moved != nil {
		result = *moved
	} else {
		result, err = s.Schedule(ctx, []string{item.ID}, "", item.PersonID, until)
		if err != nil {
			return core.Trigger{}, err
		}
	}

	s.journal.Append(ctx, item.ID, core.ActionPostponed, result.EventID, map[string]any{
		"trigger_id": result.ID,
		"until":      until.UTC().Format(time.RFC3339),
	})
	return result, nil
}
