package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/sandevgo/memobot/pkg/log"
)

const (
	ProviderManual  = "manual"
	DefaultDuration = 30 * time.Minute
)

type personResolver interface {
	Resolve(ctx context.Context, name string) (core.Person, error)
	Lookup(ctx context.Context, name string) (core.Person, error)
}

// Sync stores calendar events and re-links the affected person's items.
type Sync struct {
	events   core.EventRepository
	resolver personResolver
	linker   *Linker
	clock    clock.Clock
}

func NewSync(events core.EventRepository, resolver personResolver, linker *Linker, clk clock.Clock) *Sync {
	return &Sync{events: events, resolver: resolver, linker: linker, clock: clk}
}

type UpsertResult struct {
	Event  core.CalendarEvent `json:"event"`
	Linked int                `json:"linked"`
}

// Upsert stores ev. An explicit personName is resolved (and created if new);
// otherwise attendees are matched against known people only.
func (s *Sync) Upsert(ctx context.Context, ev core.CalendarEvent, personName string) (UpsertResult, error) {
	ev.Title = strings.TrimSpace(ev.Title)
	if ev.Title == "" {
		return UpsertResult{}, fmt.Errorf("%w: event title is required", core.ErrInvalidInput)
	}
	if ev.StartAt.IsZero() {
		return UpsertResult{}, fmt.Errorf("%w: event start is required", core.ErrInvalidInput)
	}
	if ev.EndAt.IsZero() {
		ev.EndAt = ev.StartAt.Add(DefaultDuration)
	}
	if !ev.EndAt.After(ev.StartAt) {
		return UpsertResult{}, fmt.Errorf("%w: event must end after it starts", core.ErrInvalidInput)
	}
	ev.StartAt = ev.StartAt.UTC()
	ev.EndAt = ev.EndAt.UTC()

	if ev.Provider == "" {
		ev.Provider = ProviderManual
	}
	if ev.ProviderEventID == "" {
		ev.ProviderEventID = uuid.NewString()
	}
	ev.ID = uuid.NewString()
	now := s.clock.Now()
	ev.CreatedAt = now
	ev.UpdatedAt = now

	if strings.TrimSpace(personName) != "" {
		p, err := s.resolver.Resolve(ctx, personName)
		if err != nil {
			return UpsertResult{}, err
		}
		ev.PersonID = p.ID
	} else if ev.PersonID == "" {
		ev.PersonID = s.matchAttendee(ctx, ev.Attendees)
	}

	stored, err := s.events.Upsert(ctx, ev)
	if err != nil {
		return UpsertResult{}, err
	}
	res := UpsertResult{Event: stored}

	if stored.PersonID != "" {
		n, err := s.linker.LinkPerson(ctx, stored.PersonID)
		res.Linked = n
		if err != nil {
			// The event is stored; the sweep relinks what failed here.
			log.FromCtx(ctx).Warn().Err(err).Str("event_id", stored.ID).Msg("failed to link some items to event")
		}
	}

	log.FromCtx(ctx).Info().
		Str("event_id", stored.ID).
		Str("person_id", stored.PersonID).
		Int("linked", res.Linked).
		Msg("calendar event stored")
	return res, nil
}

// Upcoming lists the person's events that have not ended yet, soonest first.
func (s *Sync) Upcoming(ctx context.Context, personID string) ([]core.CalendarEvent, error) {
	return s.events.ListUpcomingForPerson(ctx, personID, s.clock.Now())
}

func (s *Sync) matchAttendee(ctx context.Context, attendees []string) string {
	for _, a := range attendees {
		for _, name := range attendeeNames(a) {
			p, err := s.resolver.Lookup(ctx, name)
			if err == nil {
				return p.ID
			}
		}
	}
	return ""
}

// attendeeNames yields lookup candidates for an attendee entry: the full
// name, then its first word. E-mail addresses use their local part.
func attendeeNames(a string) []string {
	a = strings.TrimSpace(a)
	if i := strings.IndexByte(a, '@'); i >= 0 {
		a = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(a[:i])
	}
	fields := strings.Fields(a)
	switch len(fields) {
	case 0:
		return nil
	case 1:
		return fields
	default:
		return []string{strings.Join(fields, " "), fields[0]}
	}
}
