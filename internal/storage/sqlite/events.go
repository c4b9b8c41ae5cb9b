package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/memobot/internal/core"
)

const eventColumns = `id, provider, provider_event_id, title, start_at, end_at, attendees,
	related_person_id, created_at, updated_at`

type EventsRepo struct {
	db *sql.DB
}

func NewEventsRepo(db *sql.DB) *EventsRepo {
	return &EventsRepo{db: db}
}

// Upsert is keyed by (provider, provider_event_id). The stored id and
// created_at of an existing event are kept.
func (r *EventsRepo) Upsert(ctx context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	attendees, err := json.Marshal(ev.Attendees)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("marshal attendees: %w", err)
	}
	if ev.Attendees == nil {
		attendees = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO calendar_event (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_event_id) DO UPDATE SET
			title = excluded.title,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			attendees = excluded.attendees,
			related_person_id = COALESCE(excluded.related_person_id, calendar_event.related_person_id),
			updated_at = excluded.updated_at`,
		ev.ID, ev.Provider, ev.ProviderEventID, ev.Title, formatTime(ev.StartAt), formatTime(ev.EndAt),
		string(attendees), nullString(ev.PersonID), formatTime(ev.CreatedAt), formatTime(ev.UpdatedAt),
	)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("failed to upsert calendar event: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM calendar_event WHERE provider = ? AND provider_event_id = ?`,
		ev.Provider, ev.ProviderEventID)
	return scanEvent(row)
}

func (r *EventsRepo) Get(ctx context.Context, id string) (core.CalendarEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM calendar_event WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CalendarEvent{}, fmt.Errorf("calendar event %s: %w", id, core.ErrNotFound)
	}
	return ev, err
}

func (r *EventsRepo) ListUpcomingForPerson(ctx context.Context, personID string, now time.Time) ([]core.CalendarEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM calendar_event
		WHERE related_person_id = ? AND end_at > ?
		ORDER BY start_at ASC, id ASC`,
		personID, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar events: %w", err)
	}
	defer rows.Close()

	var events []core.CalendarEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanEvent(s scanner) (core.CalendarEvent, error) {
	var (
		ev                                core.CalendarEvent
		start, end, created, updated, att string
		person                            sql.NullString
	)
	if err := s.Scan(&ev.ID, &ev.Provider, &ev.ProviderEventID, &ev.Title, &start, &end, &att,
		&person, &created, &updated); err != nil {
		return core.CalendarEvent{}, err
	}
	ev.PersonID = person.String
	if err := json.Unmarshal([]byte(att), &ev.Attendees); err != nil {
		return core.CalendarEvent{}, fmt.Errorf("calendar event %s attendees: %w", ev.ID, err)
	}

	var err error
	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&ev.StartAt, start}, {&ev.EndAt, end}, {&ev.CreatedAt, created}, {&ev.UpdatedAt, updated}} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return core.CalendarEvent{}, fmt.Errorf("calendar event %s: %w", ev.ID, err)
		}
	}
	return ev, nil
}
