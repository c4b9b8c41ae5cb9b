package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
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
}

type PeopleService interface {
	Lookup(ctx context.Context, name string) (core.Person, error)
}

type CalendarService interface {
	Upsert(ctx context.Context, ev core.CalendarEvent, personName string) (calendar.UpsertResult, error)
}

type handler func(ctx context.Context, args json.RawMessage) (string, error)

type toolDef struct {
	Description string
	Schema      string
	Handler     handler
}

const captureSchema = `
{
  "type": "object",
  "properties": {
    "content": { "type": "string", "description": "What to remember, in the user's words" },
    "kind": { "type": "string", "enum": ["reminder", "idea", "note"], "description": "Defaults to reminder" },
    "person": { "type": "string", "description": "Name of the person this is about. Never invent one." },
    "summary": { "type": "string", "description": "Optional short normalized summary" },
    "due_at": { "type": "string", "description": "Optional RFC3339 time for an explicit reminder" }
  },
  "required": ["content"]
}
`

const listPendingSchema = `
{
  "type": "object",
  "properties": {
    "person": { "type": "string", "description": "Only items about this person" }
  }
}
`

const briefingSchema = `
{
  "type": "object",
  "properties": {
    "person": { "type": "string", "description": "Person name" },
    "event_id": { "type": "string", "description": "Calendar event id" }
  }
}
`

const closeSchema = `
{
  "type": "object",
  "properties": {
    "ids": { "type": "array", "items": { "type": "string" }, "description": "Item ids to mark as discussed" },
    "event_id": { "type": "string", "description": "Meeting where they were discussed" }
  },
  "required": ["ids"]
}
`

const eventSchema = `
{
  "type": "object",
  "properties": {
    "title": { "type": "string" },
    "start_at": { "type": "string", "description": "RFC3339 start time" },
    "end_at": { "type": "string", "description": "RFC3339 end time, defaults to 30 minutes after start" },
    "person": { "type": "string", "description": "Person the meeting is with" },
    "attendees": { "type": "array", "items": { "type": "string" } }
  },
  "required": ["title", "start_at"]
}
`

type Tools struct {
	memory   MemoryService
	people   PeopleService
	calendar CalendarService
}

func NewTools(mem MemoryService, people PeopleService, cal CalendarService) *Tools {
	return &Tools{memory: mem, people: people, calendar: cal}
}

func (t *Tools) GetDefinitions() map[string]toolDef {
	return map[string]toolDef{
		"capture_memory":     {"Remember something to bring up later, optionally about a person", captureSchema, t.Capture},
		"list_pending":       {"List pending items, optionally for one person", listPendingSchema, t.ListPending},
		"get_briefing":       {"Pending and recently discussed items for a person or meeting", briefingSchema, t.Briefing},
		"close_items":        {"Mark items as discussed", closeSchema, t.Close},
		"add_calendar_event": {"Add or update a meeting; pending items for the person get a reminder before it", eventSchema, t.AddEvent},
	}
}

func (t *Tools) Capture(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Content string `json:"content"`
		Kind    string `json:"kind"`
		Person  string `json:"person"`
		Summary string `json:"summary"`
		DueAt   string `json:"due_at"`
	}
	if err := unmarshal(args, &in); err != nil {
		return "", err
	}

	req := core.CaptureRequest{
		Kind:       core.ItemKind(in.Kind),
		Content:    in.Content,
		Summary:    in.Summary,
		PersonName: in.Person,
		Confidence: 1,
	}
	if in.DueAt != "" {
		due, err := parseTime("due_at", in.DueAt)
		if err != nil {
			return "", err
		}
		req.DueAt = &due
	}

	outcomes, err := t.memory.CaptureAll(ctx, []core.CaptureRequest{req})
	if err != nil {
		return "", err
	}
	o := outcomes[0]
	return toJSON(map[string]any{"kind": o.Kind(), "result": o})
}

func (t *Tools) ListPending(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Person string `json:"person"`
	}
	if err := unmarshal(args, &in); err != nil {
		return "", err
	}

	f := core.ItemFilter{Status: core.StatusPending}
	if in.Person != "" {
		p, err := t.people.Lookup(ctx, in.Person)
		if err != nil {
			return "", fmt.Errorf("person %q: %w", in.Person, err)
		}
		f.PersonID = p.ID
	}
	items, err := t.memory.List(ctx, f)
	if err != nil {
		return "", err
	}
	return toJSON(map[string]any{"items": items})
}

func (t *Tools) Briefing(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Person  string `json:"person"`
		EventID string `json:"event_id"`
	}
	if err := unmarshal(args, &in); err != nil {
		return "", err
	}

	var personID string
	if in.Person != "" {
		p, err := t.people.Lookup(ctx, in.Person)
		if err != nil {
			return "", fmt.Errorf("person %q: %w", in.Person, err)
		}
		personID = p.ID
	}
	b, err := t.memory.Briefing(ctx, personID, in.EventID)
	if err != nil {
		return "", err
	}
	return toJSON(b)
}

func (t *Tools) Close(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		IDs     []string `json:"ids"`
		EventID string   `json:"event_id"`
	}
	if err := unmarshal(args, &in); err != nil {
		return "", err
	}
	report, err := t.memory.Close(ctx, in.IDs, in.EventID)
	if err != nil {
		return "", err
	}
	return toJSON(report)
}

func (t *Tools) AddEvent(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Title     string   `json:"title"`
		StartAt   string   `json:"start_at"`
		EndAt     string   `json:"end_at"`
		Person    string   `json:"person"`
		Attendees []string `json:"attendees"`
	}
	if err := unmarshal(args, &in); err != nil {
		return "", err
	}

	ev := core.CalendarEvent{Title: in.Title, Attendees: in.Attendees}
	var err error
	if ev.StartAt, err = parseTime("start_at", in.StartAt); err != nil {
		return "", err
	}
	if in.EndAt != "" {
		if ev.EndAt, err = parseTime("end_at", in.EndAt); err != nil {
			return "", err
		}
	}

	res, err := t.calendar.Upsert(ctx, ev, in.Person)
	if err != nil {
		return "", err
	}
	return toJSON(res)
}

func unmarshal(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: invalid arguments: %w", core.ErrInvalidInput, err)
	}
	return nil
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339: %w", core.ErrInvalidInput, field, err)
	}
	return t, nil
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
