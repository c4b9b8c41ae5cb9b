package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/log"
	"golang.org/x/sync/errgroup"
)

// TickReport summarises one scheduler pass.
type TickReport struct {
	Due       int `json:"due"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
	Recovered int `json:"recovered"`
	Lost      int `json:"lost"`
	// Deferred triggers were due but left for the next tick.
	Deferred int `json:"deferred"`
}

// stateWriteTimeout bounds the trigger updates that follow a dispatch. They
// run detached from the tick deadline: a claimed trigger must always be
// released or settled, otherwise recovery would skip it as lost.
const stateWriteTimeout = 5 * time.Second

type tickCounters struct {
	sent, skipped, retried, failed, lost, deferred atomic.Int64
}

// Tick fires every due trigger once. Each trigger is claimed before dispatch
// so concurrent ticks never send the same reminder twice. A dispatch cut off
// by the tick deadline counts as a failed attempt and is retried later.
func (s *Scheduler) Tick(ctx context.Context) (TickReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TickTimeout)
	defer cancel()
	// No new claims in the last tenth of the budget.
	stopClaiming := time.Now().Add(s.cfg.TickTimeout - s.cfg.TickTimeout/10)

	var report TickReport
	recovered, err := s.recoverStale(ctx)
	report.Recovered = recovered
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to recover stale triggers")
	}

	due, err := s.triggers.ListDue(ctx, s.clock.Now(), s.cfg.TickBatch)
	if err != nil {
		return report, fmt.Errorf("failed to list due triggers: %w", err)
	}
	report.Due = len(due)
	if len(due) == 0 {
		return report, nil
	}

	var c tickCounters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DispatchConcurrency)
	for _, t := range due {
		g.Go(func() error {
			if gctx.Err() != nil || time.Now().After(stopClaiming) {
				c.deferred.Add(1)
				return nil
			}
			s.fire(gctx, t, &c)
			return nil
		})
	}
	_ = g.Wait()

	report.Sent = int(c.sent.Load())
	report.Skipped = int(c.skipped.Load())
	report.Retried = int(c.retried.Load())
	report.Failed = int(c.failed.Load())
	report.Lost = int(c.lost.Load())
	report.Deferred = int(c.deferred.Load())

	log.FromCtx(ctx).Info().
		Int("due", report.Due).
		Int("sent", report.Sent).
		Int("skipped", report.Skipped).
		Int("retried", report.Retried).
		Int("failed", report.Failed).
		Int("deferred", report.Deferred).
		Msg("tick complete")
	return report, nil
}

// RunTick adapts Tick to the worker signature.
func (s *Scheduler) RunTick(ctx context.Context) error {
	_, err := s.Tick(ctx)
	return err
}

// recoverStale resolves triggers left in_flight by a crashed dispatch. The
// outcome of that send is unknown, so the trigger is skipped rather than
// retried.
func (s *Scheduler) recoverStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	stale, err := s.triggers.ListStaleInFlight(ctx, now.Add(-s.cfg.ClaimTimeout), s.cfg.TickBatch)
	if err != nil {
		return 0, err
	}

	var (
		n    int
		errs []error
	)
	for _, t := range stale {
		ok, err := s.triggers.MarkSkipped(ctx, t.ID, t.ClaimToken, "claim expired, delivery unknown", now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			n++
			log.FromCtx(ctx).Warn().
				Str("trigger_id", t.ID).
				Str("item_key", t.ItemKey).
				Msg("stale in-flight trigger skipped")
		}
	}
	return n, errors.Join(errs...)
}

func (s *Scheduler) fire(ctx context.Context, t core.Trigger, c *tickCounters) {
	logger := log.FromCtx(ctx).With().Str("trigger_id", t.ID).Str("item_key", t.ItemKey).Logger()
	token := uuid.NewString()

	won, err := s.triggers.Claim(ctx, t.ID, token, s.clock.Now())
	if err != nil {
		logger.Error().Err(err).Msg("failed to claim trigger")
		return
	}
	if !won {
		logger.Debug().Msg("trigger claimed elsewhere")
		return
	}

	// From here on the claim is ours and must be settled.
	stateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateWriteTimeout)
	defer cancel()

	items, err := s.items.GetMany(ctx, t.ItemIDs)
	if err != nil {
		s.release(stateCtx, t, token, err, c)
		return
	}
	if len(items) != len(t.ItemIDs) {
		logger.Warn().
			Err(core.ErrInconsistent).
			Int("expected", len(t.ItemIDs)).
			Int("found", len(items)).
			Msg("trigger references missing items")
	}

	pending := make([]core.MemoryItem, 0, len(items))
	for _, it := range items {
		if it.Status == core.StatusPending {
			pending = append(pending, it)
		}
	}
	if len(pending) == 0 {
		if _, err := s.triggers.MarkSkipped(stateCtx, t.ID, token, "no pending items", s.clock.Now()); err != nil {
			logger.Error().Err(err).Msg("failed to skip trigger")
			return
		}
		c.skipped.Add(1)
		logger.Debug().Msg("trigger skipped, items already closed")
		return
	}

	text := s.payload(ctx, t, pending)
	sendCtx, cancelSend := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	err = s.dispatcher.Send(sendCtx, t.PersonID, text)
	cancelSend()
	if err != nil {
		s.release(stateCtx, t, token, err, c)
		return
	}

	ok, err := s.triggers.MarkSent(stateCtx, t.ID, token, s.clock.Now())
	if err != nil || !ok {
		// Delivered but not recorded; recovery will skip it, never resend.
		c.lost.Add(1)
		logger.Error().Err(err).Bool("recorded", ok).Msg("reminder delivered but trigger not marked sent")
		return
	}
	c.sent.Add(1)

	for _, it := range pending {
		s.journal.Append(stateCtx, it.ID, core.ActionReminded, t.EventID, map[string]any{
			"trigger_id": t.ID,
		})
	}
	logger.Info().Int("items", len(pending)).Msg("reminder sent")
}

func (s *Scheduler) release(ctx context.Context, t core.Trigger, token string, cause error, c *tickCounters) {
	logger := log.FromCtx(ctx).With().Str("trigger_id", t.ID).Logger()
	now := s.clock.Now()
	attempts := t.Attempts + 1

	if attempts >= s.cfg.MaxDispatchAttempts {
		if _, err := s.triggers.MarkSkipped(ctx, t.ID, token, cause.Error(), now); err != nil {
			logger.Error().Err(err).Msg("failed to skip exhausted trigger")
		}
		c.failed.Add(1)
		logger.Error().Err(cause).Int("attempts", attempts).Msg("reminder dispatch failed permanently")
		return
	}

	next := now.Add(s.backoff.Delay(attempts))
	if _, err := s.triggers.Release(ctx, t.ID, token, attempts, next, cause.Error(), now); err != nil {
		logger.Error().Err(err).Msg("failed to release trigger")
		return
	}
	c.retried.Add(1)

	for _, id := range t.ItemIDs {
		s.journal.Append(ctx, id, core.ActionPostponed, t.EventID, map[string]any{
			"trigger_id":      t.ID,
			"attempt":         attempts,
			"error":           cause.Error(),
			"next_attempt_at": next.Format(time.RFC3339),
		})
	}
	logger.Warn().Err(cause).Int("attempt", attempts).Time("next_attempt_at", next).Msg("reminder dispatch failed, will retry")
}
