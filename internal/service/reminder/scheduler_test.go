package reminder

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/interaction"
	"github.com/sandevgo/memobot/internal/storage/sqlite"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/sandevgo/memobot/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type sent struct {
	personID string
	text     string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	sent  []sent
	fails int
	// hangOn makes sends whose text contains it wait for their context.
	hangOn string
}

func (d *fakeDispatcher) Send(ctx context.Context, personID, text string) error {
	d.mu.Lock()
	hang := d.hangOn != "" && strings.Contains(text, d.hangOn)
	d.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fails > 0 {
		d.fails--
		return errors.New("channel down")
	}
	d.sent = append(d.sent, sent{personID: personID, text: text})
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type fixture struct {
	sched    *Scheduler
	clock    *clock.Fake
	items    *sqlite.ItemsRepo
	people   *sqlite.PeopleRepo
	events   *sqlite.EventsRepo
	triggers *sqlite.TriggersRepo
	journal  *interaction.Logger
	disp     *fakeDispatcher
	cfg      *config.EngineConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "reminder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		clock:    clock.NewFake(t0),
		items:    sqlite.NewItemsRepo(db),
		people:   sqlite.NewPeopleRepo(db),
		events:   sqlite.NewEventsRepo(db),
		triggers: sqlite.NewTriggersRepo(db),
		disp:     &fakeDispatcher{},
		cfg:      config.DefaultEngineConfig(),
	}
	f.journal = interaction.NewLogger(sqlite.NewInteractionsRepo(db), f.clock, retry.NewDefaultConfig())
	f.sched = NewScheduler(Deps{
		Triggers:   f.triggers,
		Items:      f.items,
		People:     f.people,
		Events:     f.events,
		Dispatcher: f.disp,
		Journal:    f.journal,
		Clock:      f.clock,
	}, f.cfg)
	return f
}

func (f *fixture) person(t *testing.T, name string) core.Person {
	t.Helper()
	p := core.Person{ID: uuid.NewString(), DisplayName: name, Aliases: []string{name}, CreatedAt: t0}
	require.NoError(t, f.people.Create(context.Background(), p, name))
	return p
}

func (f *fixture) item(t *testing.T, personID, content string) core.MemoryItem {
	t.Helper()
	it := core.MemoryItem{
		ID:          uuid.NewString(),
		Kind:        core.KindReminder,
		Content:     content,
		PersonID:    personID,
		Status:      core.StatusPending,
		Fingerprint: "fp-" + content,
		Version:     1,
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
	require.NoError(t, f.items.Create(context.Background(), it))
	return it
}

func (f *fixture) count(t *testing.T, itemID string, action core.Action) int {
	t.Helper()
	n, err := f.journal.CountByAction(context.Background(), itemID, action)
	require.NoError(t, err)
	return n
}

func TestItemKey(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"single", []string{"a"}, "a"},
		{"sorted", []string{"c", "a", "b"}, "a,b,c"},
		{"deduplicated", []string{"b", "a", "b", ""}, "a,b"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ItemKey(tt.ids))
		})
	}
}

func TestScheduler_ScheduleValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sched.Schedule(ctx, nil, "", "", t0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	it := f.item(t, "", "salarios")
	_, err = f.sched.Schedule(ctx, []string{it.ID}, "", "", time.Time{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestScheduler_CancelIfClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "", "salarios")
	b := f.item(t, "", "vacaciones")

	grouped, err := f.sched.Schedule(ctx, []string{a.ID, b.ID}, "", "", t0.Add(time.Hour))
	require.NoError(t, err)
	single, err := f.sched.Schedule(ctx, []string{a.ID}, "", "", t0.Add(time.Hour))
	require.NoError(t, err)

	ok, err := f.items.TransitionStatus(ctx, a.ID, core.StatusPending, core.StatusDiscussed, t0)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := f.sched.CancelIfClosed(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "grouped trigger still covers a pending item")

	got, err := f.triggers.Get(ctx, single.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerCancelled, got.State)

	got, err = f.triggers.Get(ctx, grouped.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerScheduled, got.State)

	ok, err = f.items.TransitionStatus(ctx, b.ID, core.StatusPending, core.StatusArchived, t0)
	require.NoError(t, err)
	require.True(t, ok)

	n, err = f.sched.CancelStale(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScheduler_Postpone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "", "salarios")

	// No active trigger: an explicit one is created.
	until := t0.Add(24 * time.Hour)
	trg, err := f.sched.Postpone(ctx, it, until)
	require.NoError(t, err)
	assert.Empty(t, trg.EventID)
	assert.True(t, trg.TriggerAt.Equal(until))

	// Postponing again moves the same trigger.
	later := t0.Add(48 * time.Hour)
	moved, err := f.sched.Postpone(ctx, it, later)
	require.NoError(t, err)
	assert.Equal(t, trg.ID, moved.ID)

	stored, err := f.triggers.Get(ctx, trg.ID)
	require.NoError(t, err)
	assert.True(t, stored.TriggerAt.Equal(later))
	assert.Equal(t, 2, f.count(t, it.ID, core.ActionPostponed))

	_, err = f.sched.Postpone(ctx, it, t0.Add(-time.Minute))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	it.Status = core.StatusDiscussed
	_, err = f.sched.Postpone(ctx, it, later)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestScheduler_PostponeReplacesMeetingTrigger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	toni := f.person(t, "Toni")
	it := f.item(t, toni.ID, "salarios")
	ev, err := f.events.Upsert(ctx, core.CalendarEvent{
		ID: uuid.NewString(), Provider: "manual", ProviderEventID: "1", Title: "1:1",
		StartAt: t0.Add(time.Hour), EndAt: t0.Add(2 * time.Hour), PersonID: toni.ID,
		CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)

	bound, err := f.sched.Schedule(ctx, []string{it.ID}, ev.ID, toni.ID, t0.Add(30*time.Minute))
	require.NoError(t, err)

	until := t0.Add(24 * time.Hour)
	trg, err := f.sched.Postpone(ctx, it, until)
	require.NoError(t, err)
	assert.NotEqual(t, bound.ID, trg.ID)
	assert.Empty(t, trg.EventID)
	assert.True(t, trg.TriggerAt.Equal(until))

	stored, err := f.triggers.Get(ctx, bound.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerCancelled, stored.State)

	active, err := f.sched.ActiveFor(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, trg.ID, active[0].ID)
}
