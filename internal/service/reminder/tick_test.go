package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_SendsDueTriggerOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	toni := f.person(t, "Toni")
	it := f.item(t, toni.ID, "salarios")

	trg, err := f.sched.Schedule(ctx, []string{it.ID}, "", toni.ID, t0.Add(time.Minute))
	require.NoError(t, err)

	report, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due, "not yet due")

	f.clock.Advance(time.Minute)
	report, err = f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	require.Equal(t, 1, f.disp.count())
	assert.Equal(t, toni.ID, f.disp.sent[0].personID)
	assert.Contains(t, f.disp.sent[0].text, "Toni")
	assert.Contains(t, f.disp.sent[0].text, "salarios")

	report, err = f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due)
	assert.Equal(t, 1, f.disp.count())

	stored, err := f.triggers.Get(ctx, trg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerSent, stored.State)
	assert.Equal(t, 1, f.count(t, it.ID, core.ActionReminded))
}

func TestTick_ConcurrentTicksDispatchOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		it := f.item(t, "", "tema "+uuid.NewString())
		_, err := f.sched.Schedule(ctx, []string{it.ID}, "", "", t0)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sched.Tick(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, f.disp.count())
}

func TestTick_SkipsClosedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "", "salarios")
	trg, err := f.sched.Schedule(ctx, []string{it.ID}, "", "", t0)
	require.NoError(t, err)

	ok, err := f.items.TransitionStatus(ctx, it.ID, core.StatusPending, core.StatusDiscussed, t0)
	require.NoError(t, err)
	require.True(t, ok)

	report, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, f.disp.count())

	stored, err := f.triggers.Get(ctx, trg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerSkipped, stored.State)
}

func TestTick_RetriesWithBackoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "", "salarios")
	trg, err := f.sched.Schedule(ctx, []string{it.ID}, "", "", t0)
	require.NoError(t, err)
	f.disp.fails = 1

	report, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Retried)

	stored, err := f.triggers.Get(ctx, trg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerScheduled, stored.State)
	assert.Equal(t, 1, stored.Attempts)
	assert.True(t, stored.NextAttemptAt.Equal(t0.Add(f.cfg.RetryInitialDelay)))
	assert.Equal(t, 1, f.count(t, it.ID, core.ActionPostponed))

	report, err = f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due, "backoff not elapsed")

	f.clock.Advance(f.cfg.RetryInitialDelay)
	report, err = f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, f.disp.count())
}

func TestTick_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	f.cfg.MaxDispatchAttempts = 2
	ctx := context.Background()
	it := f.item(t, "", "salarios")
	trg, err := f.sched.Schedule(ctx, []string{it.ID}, "", "", t0)
	require.NoError(t, err)
	f.disp.fails = 10

	_, err = f.sched.Tick(ctx)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	report, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	stored, err := f.triggers.Get(ctx, trg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerSkipped, stored.State)
	assert.Equal(t, "channel down", stored.LastError)
	assert.Zero(t, f.count(t, it.ID, core.ActionReminded))
}

func TestTick_RecoversStaleClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "", "salarios")
	trg, err := f.sched.Schedule(ctx, []string{it.ID}, "", "", t0)
	require.NoError(t, err)

	won, err := f.triggers.Claim(ctx, trg.ID, "crashed-worker", t0)
	require.NoError(t, err)
	require.True(t, won)

	f.clock.Advance(f.cfg.ClaimTimeout + time.Second)
	report, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Recovered)
	assert.Zero(t, f.disp.count(), "an unknown delivery is never repeated")

	stored, err := f.triggers.Get(ctx, trg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerSkipped, stored.State)
}

func TestTick_IncludesEventTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	toni := f.person(t, "Toni")
	it := f.item(t, toni.ID, "salarios")
	ev, err := f.events.Upsert(ctx, core.CalendarEvent{
		ID: uuid.NewString(), Provider: "manual", ProviderEventID: "1", Title: "1:1 semanal",
		StartAt: t0.Add(30 * time.Minute), EndAt: t0.Add(time.Hour), PersonID: toni.ID,
		CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)

	_, err = f.sched.Schedule(ctx, []string{it.ID}, ev.ID, toni.ID, t0)
	require.NoError(t, err)

	_, err = f.sched.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, f.disp.count())
	assert.Contains(t, f.disp.sent[0].text, "1:1 semanal")
}

func TestTick_SlowDispatchDoesNotHoldOthers(t *testing.T) {
	f := newFixture(t)
	f.cfg.DispatchTimeout = 50 * time.Millisecond
	f.disp.hangOn = "lento"
	ctx := context.Background()

	slow := f.item(t, "", "tema lento")
	slowTrg, err := f.sched.Schedule(ctx, []string{slow.ID}, "", "", t0)
	require.NoError(t, err)

	var fast []core.Trigger
	for i := 0; i < 5; i++ {
		it := f.item(t, "", "tema rápido "+uuid.NewString())
		trg, err := f.sched.Schedule(ctx, []string{it.ID}, "", "", t0)
		require.NoError(t, err)
		fast = append(fast, trg)
	}

	report, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Sent)
	assert.Equal(t, 1, report.Retried)
	assert.Equal(t, 5, f.disp.count())

	for _, trg := range fast {
		stored, err := f.triggers.Get(ctx, trg.ID)
		require.NoError(t, err)
		assert.Equal(t, core.TriggerSent, stored.State)
	}

	stored, err := f.triggers.Get(ctx, slowTrg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerScheduled, stored.State)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, 1, f.count(t, slow.ID, core.ActionPostponed))
}

func TestTick_DeadlineIsTransient(t *testing.T) {
	f := newFixture(t)
	f.cfg.TickTimeout = 100 * time.Millisecond
	f.cfg.DispatchTimeout = time.Minute
	f.disp.hangOn = "salarios"
	ctx := context.Background()

	it := f.item(t, "", "salarios")
	trg, err := f.sched.Schedule(ctx, []string{it.ID}, "", "", t0)
	require.NoError(t, err)

	report, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Retried)

	stored, err := f.triggers.Get(ctx, trg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerScheduled, stored.State, "a timed out dispatch is released, not left in flight")
	assert.Equal(t, 1, stored.Attempts)

	// Once the channel recovers the reminder goes out instead of being
	// written off as lost.
	f.disp.mu.Lock()
	f.disp.hangOn = ""
	f.disp.mu.Unlock()
	f.clock.Advance(f.cfg.ClaimTimeout + time.Second)

	report, err = f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Recovered)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, f.disp.count())

	stored, err = f.triggers.Get(ctx, trg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerSent, stored.State)
}

func TestTick_CancelledContextReleasesClaim(t *testing.T) {
	f := newFixture(t)
	f.disp.hangOn = "salarios"
	it := f.item(t, "", "salarios")
	trg, err := f.sched.Schedule(context.Background(), []string{it.ID}, "", "", t0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = f.sched.Tick(ctx)
	require.NoError(t, err)

	stored, err := f.triggers.Get(context.Background(), trg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerScheduled, stored.State)
	assert.Equal(t, 1, stored.Attempts)
}
