package memory

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/providers/vector"
	"github.com/sandevgo/memobot/internal/service/calendar"
	"github.com/sandevgo/memobot/internal/service/interaction"
	"github.com/sandevgo/memobot/internal/service/people"
	"github.com/sandevgo/memobot/internal/service/reminder"
	"github.com/sandevgo/memobot/internal/storage/sqlite"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/sandevgo/memobot/pkg/conv"
	"github.com/sandevgo/memobot/pkg/retry"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

const embedDim = 64

// keywordEmbedder maps texts sharing a topic stem to the same direction, so
// "salarios" and "su subida de salario" are near duplicates. Every other
// distinct text gets a dimension of its own.
type keywordEmbedder struct {
	topics []string
	down   atomic.Bool

	mu     sync.Mutex
	others map[string]int
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{
		topics: []string{"salari", "vacacion", "presupuesto", "bonus"},
		others: make(map[string]int),
	}
}

func (e *keywordEmbedder) otherDim(norm string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	dim, ok := e.others[norm]
	if !ok {
		dim = len(e.topics) + len(e.others)%(embedDim-len(e.topics))
		e.others[norm] = dim
	}
	return dim
}

func (e *keywordEmbedder) Model() string { return "keyword-test" }

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.down.Load() {
		return nil, errors.New("embedding service down")
	}
	norm := conv.Normalize(text)
	vec := make([]float32, embedDim)
	hit := false
	for i, topic := range e.topics {
		if strings.Contains(norm, topic) {
			vec[i] = 1
			hit = true
		}
	}
	if !hit {
		vec[e.otherDim(norm)] = 1
	}
	return vec, nil
}

type recordingDispatcher struct {
	mu    sync.Mutex
	texts []string
}

func (d *recordingDispatcher) Send(_ context.Context, _ string, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, text)
	return nil
}

func (d *recordingDispatcher) sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.texts...)
}

type fixture struct {
	mem      *Memory
	cfg      *config.EngineConfig
	clock    *clock.Fake
	embedder *keywordEmbedder
	items    *sqlite.ItemsRepo
	triggers *sqlite.TriggersRepo
	resolver *people.Resolver
	journal  *interaction.Logger
	sched    *reminder.Scheduler
	sync     *calendar.Sync
	disp     *recordingDispatcher
	deps     Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	index, err := vector.NewIndex()
	require.NoError(t, err)

	f := &fixture{
		cfg:      config.DefaultEngineConfig(),
		clock:    clock.NewFake(t0),
		embedder: newKeywordEmbedder(),
		items:    sqlite.NewItemsRepo(db),
		triggers: sqlite.NewTriggersRepo(db),
		disp:     &recordingDispatcher{},
	}
	peopleRepo := sqlite.NewPeopleRepo(db)
	events := sqlite.NewEventsRepo(db)
	f.resolver = people.NewResolver(peopleRepo, f.clock)
	f.journal = interaction.NewLogger(sqlite.NewInteractionsRepo(db), f.clock, retry.NewDefaultConfig())
	f.sched = reminder.NewScheduler(reminder.Deps{
		Triggers:   f.triggers,
		Items:      f.items,
		People:     peopleRepo,
		Events:     events,
		Dispatcher: f.disp,
		Journal:    f.journal,
		Clock:      f.clock,
	}, f.cfg)
	linker := calendar.NewLinker(events, f.items, f.triggers, f.sched, f.clock, f.cfg)
	f.sync = calendar.NewSync(events, f.resolver, linker, f.clock)

	f.deps = Deps{
		Items:     f.items,
		Events:    events,
		People:    f.resolver,
		Embedder:  f.embedder,
		Index:     index,
		Journal:   f.journal,
		Linker:    linker,
		Scheduler: f.sched,
		Clock:     f.clock,
	}
	f.mem = NewMemory(f.cfg, f.deps)
	return f
}

func (f *fixture) capture(t *testing.T, person, content string) Outcome {
	t.Helper()
	out, err := f.mem.Capture(context.Background(), core.CaptureRequest{
		Kind: core.KindReminder, Content: content, PersonName: person, Confidence: 0.9,
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) event(t *testing.T, person string, start time.Time) core.CalendarEvent {
	t.Helper()
	res, err := f.sync.Upsert(context.Background(), core.CalendarEvent{
		Title: "1:1 con " + person, StartAt: start, EndAt: start.Add(time.Hour),
	}, person)
	require.NoError(t, err)
	return res.Event
}

func (f *fixture) count(t *testing.T, itemID string, action core.Action) int {
	t.Helper()
	n, err := f.journal.CountByAction(context.Background(), itemID, action)
	require.NoError(t, err)
	return n
}

func (f *fixture) pending(t *testing.T, personID string) []core.MemoryItem {
	t.Helper()
	items, err := f.mem.List(context.Background(), core.ItemFilter{PersonID: personID, Status: core.StatusPending})
	require.NoError(t, err)
	return items
}
