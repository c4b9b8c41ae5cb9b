package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/log"
)

const recentlyDiscussedLimit = 5

type CloseReport struct {
	Closed            []string `json:"closed"`
	Skipped           []string `json:"skipped,omitempty"`
	NotFound          []string `json:"not_found,omitempty"`
	CancelledTriggers int      `json:"cancelled_triggers"`
}

// Close marks pending items as discussed, optionally in the context of a
// calendar event, and cancels triggers left without pending items.
func (m *Memory) Close(ctx context.Context, ids []string, eventID string) (CloseReport, error) {
	if eventID != "" {
		if _, err := m.events.Get(ctx, eventID); err != nil {
			return CloseReport{}, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
		}
	}
	return m.transition(ctx, ids, core.StatusDiscussed, core.ActionDiscussed, eventID)
}

// Archive drops pending items without discussing them.
func (m *Memory) Archive(ctx context.Context, ids []string) (CloseReport, error) {
	return m.transition(ctx, ids, core.StatusArchived, core.ActionArchived, "")
}

func (m *Memory) transition(ctx context.Context, ids []string, to core.ItemStatus, action core.Action, eventID string) (CloseReport, error) {
	if len(ids) == 0 {
		return CloseReport{}, fmt.Errorf("%w: no item ids", core.ErrInvalidInput)
	}

	var report CloseReport
	for _, id := range ids {
		item, err := m.items.Get(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			report.NotFound = append(report.NotFound, id)
			continue
		}
		if err != nil {
			return report, err
		}
		if item.Status != core.StatusPending {
			report.Skipped = append(report.Skipped, id)
			continue
		}

		ok, err := m.items.TransitionStatus(ctx, id, core.StatusPending, to, m.clock.Now())
		if err != nil {
			return report, err
		}
		if !ok {
			// Closed concurrently.
			report.Skipped = append(report.Skipped, id)
			continue
		}

		var meta map[string]any
		if eventID != "" {
			meta = map[string]any{"event_id": eventID}
		}
		m.journal.Append(ctx, id, action, eventID, meta)
		report.Closed = append(report.Closed, id)
		m.retag(ctx, id, to)
	}

	if len(report.Closed) > 0 {
		n, err := m.scheduler.CancelIfClosed(ctx, report.Closed)
		report.CancelledTriggers = n
		if err != nil {
			// Tick skips whatever was not cancelled here.
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to cancel some triggers")
		}
	}

	log.FromCtx(ctx).Info().
		Str("status", string(to)).
		Int("closed", len(report.Closed)).
		Int("skipped", len(report.Skipped)).
		Int("not_found", len(report.NotFound)).
		Msg("items closed")
	return report, nil
}

// retag keeps the similarity index in step with a status change. Archived
// items take no part in consolidation and leave the index. A failure here is
// repaired by the index rebuild on the next start.
func (m *Memory) retag(ctx context.Context, id string, to core.ItemStatus) {
	var err error
	if to == core.StatusArchived {
		err = m.index.Remove(ctx, id)
	} else {
		err = m.index.SetStatus(ctx, id, to)
	}
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("item_id", id).Msg("failed to update similarity index")
	}
}

// Postpone moves the reminder of a pending item to until.
func (m *Memory) Postpone(ctx context.Context, id string, until time.Time) (core.Trigger, error) {
	item, err := m.items.Get(ctx, id)
	if err != nil {
		return core.Trigger{}, err
	}
	return m.scheduler.Postpone(ctx, item, until)
}

func (m *Memory) Get(ctx context.Context, id string) (core.MemoryItem, error) {
	return m.items.Get(ctx, id)
}

func (m *Memory) List(ctx context.Context, f core.ItemFilter) ([]core.MemoryItem, error) {
	return m.items.List(ctx, f)
}

// Briefing collects what is pending for a person, or for the person of a
// calendar event, plus the topics most recently discussed with them.
func (m *Memory) Briefing(ctx context.Context, personID, eventID string) (core.Briefing, error) {
	var b core.Briefing
	if eventID != "" {
		ev, err := m.events.Get(ctx, eventID)
		if err != nil {
			return b, err
		}
		b.Event = &ev
		if personID == "" {
			personID = ev.PersonID
		}
	}
	if personID == "" {
		if b.Event != nil {
			return b, nil
		}
		return b, fmt.Errorf("%w: briefing needs a person or an event", core.ErrInvalidInput)
	}

	p, err := m.people.Get(ctx, personID)
	if err != nil {
		return b, err
	}
	b.Person = &p

	if b.Pending, err = m.items.List(ctx, core.ItemFilter{PersonID: personID, Status: core.StatusPending}); err != nil {
		return b, err
	}
	b.RecentlyDiscussed, err = m.items.List(ctx, core.ItemFilter{
		PersonID: personID,
		Status:   core.StatusDiscussed,
		Newest:   true,
		Limit:    recentlyDiscussedLimit,
	})
	return b, err
}
