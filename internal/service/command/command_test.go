package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/providers/intent"
	"github.com/sandevgo/memobot/internal/service/calendar"
	"github.com/sandevgo/memobot/internal/service/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemory struct {
	items    []core.MemoryItem
	captured []core.CaptureRequest
	closed   []string
	postpone struct {
		id    string
		until time.Time
	}
	err error
}

func (m *fakeMemory) CaptureAll(_ context.Context, reqs []core.CaptureRequest) ([]memory.Outcome, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.captured = append(m.captured, reqs...)
	out := make([]memory.Outcome, len(reqs))
	for i, r := range reqs {
		out[i] = memory.Created{MemoryItem: core.MemoryItem{ID: "0123456789abcdef", Content: r.Content}}
	}
	return out, nil
}

func (m *fakeMemory) List(_ context.Context, f core.ItemFilter) ([]core.MemoryItem, error) {
	var out []core.MemoryItem
	for _, it := range m.items {
		if f.PersonID != "" && it.PersonID != f.PersonID {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (m *fakeMemory) Briefing(_ context.Context, personID, _ string) (core.Briefing, error) {
	items, _ := m.List(context.Background(), core.ItemFilter{PersonID: personID, Status: core.StatusPending})
	return core.Briefing{Person: &core.Person{ID: personID, DisplayName: "Toni"}, Pending: items}, nil
}

func (m *fakeMemory) Close(_ context.Context, ids []string, _ string) (memory.CloseReport, error) {
	m.closed = append(m.closed, ids...)
	return memory.CloseReport{Closed: ids}, nil
}

func (m *fakeMemory) Postpone(_ context.Context, id string, until time.Time) (core.Trigger, error) {
	m.postpone.id, m.postpone.until = id, until
	return core.Trigger{ID: "t", TriggerAt: until}, nil
}

type fakePeople map[string]core.Person

func (p fakePeople) Lookup(_ context.Context, name string) (core.Person, error) {
	for _, person := range p {
		if person.DisplayName == name {
			return person, nil
		}
	}
	return core.Person{}, core.ErrNotFound
}

func (p fakePeople) Get(_ context.Context, id string) (core.Person, error) {
	person, ok := p[id]
	if !ok {
		return core.Person{}, core.ErrNotFound
	}
	return person, nil
}

type fakeCalendar struct {
	got    core.CalendarEvent
	person string
}

func (c *fakeCalendar) Upsert(_ context.Context, ev core.CalendarEvent, personName string) (calendar.UpsertResult, error) {
	c.got, c.person = ev, personName
	return calendar.UpsertResult{Event: ev, Linked: 2}, nil
}

const (
	idA = "aaaaaaaa-0000-0000-0000-000000000001"
	idB = "aaaaaaab-0000-0000-0000-000000000002"
	idC = "cccccccc-0000-0000-0000-000000000003"
)

func newTestRouter() (*Router, *fakeMemory, *fakeCalendar) {
	mem := &fakeMemory{items: []core.MemoryItem{
		{ID: idA, Content: "salarios", PersonID: "p-toni", Status: core.StatusPending},
		{ID: idB, Content: "vacaciones", PersonID: "p-ana", Status: core.StatusPending},
		{ID: idC, Content: "regalo", Status: core.StatusPending},
	}}
	people := fakePeople{
		"p-toni": {ID: "p-toni", DisplayName: "Toni"},
		"p-ana":  {ID: "p-ana", DisplayName: "Ana"},
	}
	cal := &fakeCalendar{}
	router := New(NewCommands(Deps{Memory: mem, People: people, Calendar: cal, Location: time.UTC}))
	router.Register(NewHelpCommand(router))
	return router, mem, cal
}

func TestRouter_Execute(t *testing.T) {
	ctx := context.Background()
	router, _, _ := newTestRouter()

	_, ok := router.Execute(ctx, "hola")
	assert.False(t, ok)

	reply, ok := router.Execute(ctx, "/nope")
	assert.True(t, ok)
	assert.Contains(t, reply, "desconocido")

	reply, ok = router.Execute(ctx, "/pending@memobot Toni")
	assert.True(t, ok)
	assert.Contains(t, reply, "salarios")
	assert.NotContains(t, reply, "vacaciones")

	reply, _ = router.Execute(ctx, "/pending Nadie")
	assert.Contains(t, reply, "Error")

	names := []string{}
	for _, cmd := range router.ListCommands() {
		names = append(names, cmd.Name())
	}
	assert.Equal(t, []string{"briefing", "done", "event", "help", "pending", "snooze"}, names)
}

func TestPendingCommand_GroupsByPerson(t *testing.T) {
	router, _, _ := newTestRouter()
	reply, _ := router.Execute(context.Background(), "/pending")

	assert.Contains(t, reply, "**Toni**")
	assert.Contains(t, reply, "**Ana**")
	assert.Contains(t, reply, "**Sin persona**")
	assert.Contains(t, reply, "`aaaaaaaa`")
}

func TestDoneCommand_ResolvesShortIDs(t *testing.T) {
	ctx := context.Background()
	router, mem, _ := newTestRouter()

	reply, _ := router.Execute(ctx, "/done cccccccc "+idA)
	assert.Contains(t, reply, "2 tema(s)")
	assert.Equal(t, []string{idC, idA}, mem.closed)

	reply, _ = router.Execute(ctx, "/done aaaa")
	assert.Contains(t, reply, "ambiguo")

	reply, _ = router.Execute(ctx, "/done ffffffff")
	assert.Contains(t, reply, "no hay nada pendiente")
}

func TestSnoozeCommand(t *testing.T) {
	router, mem, _ := newTestRouter()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for _, cmd := range router.ListCommands() {
		if s, ok := cmd.(*SnoozeCommand); ok {
			s.now = func() time.Time { return now }
		}
	}

	_, _ = router.Execute(context.Background(), "/snooze cccccccc 2d")
	assert.Equal(t, idC, mem.postpone.id)
	assert.True(t, mem.postpone.until.Equal(now.Add(48*time.Hour)))
}

func TestEventCommand(t *testing.T) {
	router, _, cal := newTestRouter()

	reply, _ := router.Execute(context.Background(), "/event Toni 2026-03-05T10:00 45")
	assert.Equal(t, "Toni", cal.person)
	assert.True(t, cal.got.StartAt.Equal(time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)))
	assert.True(t, cal.got.EndAt.Equal(time.Date(2026, 3, 5, 10, 45, 0, 0, time.UTC)))
	assert.Contains(t, reply, "2 tema(s)")

	reply, _ = router.Execute(context.Background(), "/event Toni mañana")
	assert.Contains(t, reply, "fecha inválida")
}

func TestParseDelay(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"90m", 90 * time.Minute, false},
		{"2h", 2 * time.Hour, false},
		{"3d", 72 * time.Hour, false},
		{"0d", 0, true},
		{"-1h", 0, true},
		{"pronto", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDelay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTime(t *testing.T) {
	madrid := time.FixedZone("CET", 3600)

	got, err := ParseTime("2026-03-05T10:00:00Z", madrid)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)))

	got, err = ParseTime("2026-03-05 10:00", madrid)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)))

	_, err = ParseTime("ayer", madrid)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAssistant_Handle(t *testing.T) {
	ctx := context.Background()
	router, mem, _ := newTestRouter()
	a := NewAssistant(router, intent.NewRuleParser(), mem)

	reply := a.Handle(ctx, "Recuérdame hablar con Toni de salarios")
	assert.Contains(t, reply, "Apuntado para Toni")
	require.Len(t, mem.captured, 1)
	assert.Equal(t, "Toni", mem.captured[0].PersonName)

	reply = a.Handle(ctx, "qué tengo pendiente")
	assert.Contains(t, reply, "salarios")

	reply = a.Handle(ctx, "buenos días")
	assert.Contains(t, reply, "No te he entendido")

	reply = a.Handle(ctx, "/help")
	assert.Contains(t, reply, "/pending")

	mem.err = core.Unavailable("store", errors.New("disk full"))
	reply = a.Handle(ctx, "apunta revisar presupuesto")
	assert.Contains(t, reply, "servicio externo")
}

func TestResponseFormatter_Outcome(t *testing.T) {
	f := NewResponseFormatter()
	it := core.MemoryItem{ID: "0123456789", Content: "salarios"}

	tests := []struct {
		name string
		o    memory.Outcome
		want string
	}{
		{"created", memory.Created{MemoryItem: it}, "Apuntado para Toni"},
		{"merged", memory.Merged{MemoryItem: it}, "Ya lo tenía apuntado"},
		{"duplicate", memory.Duplicate{MemoryItem: it}, "Ya estaba apuntado"},
		{"already discussed", memory.AlreadyDiscussed{MemoryItem: it}, "Ya hablaste de esto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Outcome(tt.o, "Toni")
			assert.Contains(t, got, tt.want)
			assert.Contains(t, got, "`01234567`")
		})
	}
}
