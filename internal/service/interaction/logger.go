package interaction

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/sandevgo/memobot/pkg/log"
	"github.com/sandevgo/memobot/pkg/retry"
)

const (
	queueSize    = 256
	flushTimeout = 5 * time.Second
)

// Logger appends audit entries. A failed write never fails the caller: the
// entry is queued and retried in the background.
type Logger struct {
	repo    core.InteractionRepository
	clock   clock.Clock
	retrier *retry.Retrier

	queue chan core.InteractionEntry
	wg    sync.WaitGroup
}

func NewLogger(repo core.InteractionRepository, clk clock.Clock, retryCfg *retry.Config) *Logger {
	return &Logger{
		repo:    repo,
		clock:   clk,
		retrier: retry.NewRetrier(retryCfg),
		queue:   make(chan core.InteractionEntry, queueSize),
	}
}

// Append records action against itemID and returns the entry. meta may be nil.
func (l *Logger) Append(ctx context.Context, itemID string, action core.Action, eventID string, meta map[string]any) core.InteractionEntry {
	now := l.clock.Now()
	e := core.InteractionEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		ItemID:    itemID,
		Action:    action,
		EventID:   eventID,
		Meta:      meta,
		CreatedAt: now,
	}

	if err := l.repo.Append(ctx, e); err != nil {
		logger := log.FromCtx(ctx).Warn().Err(err).Str("item_id", itemID).Str("action", string(action))
		select {
		case l.queue <- e:
			logger.Msg("interaction log write failed, queued for retry")
		default:
			logger.Msg("interaction log retry queue full, entry dropped")
		}
	}
	return e
}

func (l *Logger) History(ctx context.Context, itemID string) ([]core.InteractionEntry, error) {
	return l.repo.ListByItem(ctx, itemID)
}

func (l *Logger) CountByAction(ctx context.Context, itemID string, action core.Action) (int, error) {
	return l.repo.CountByAction(ctx, itemID, action)
}

// Start drains the retry queue until ctx is done.
func (l *Logger) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "interaction_log")
	l.wg.Add(1)
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-l.queue:
			l.write(ctx, e)
		}
	}
}

// Shutdown makes a final, bounded attempt at whatever is still queued.
func (l *Logger) Shutdown(ctx context.Context) error {
	l.wg.Wait()
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	for {
		select {
		case e := <-l.queue:
			if err := l.repo.Append(ctx, e); err != nil {
				log.FromCtx(ctx).Error().Err(err).Str("entry_id", e.ID).Msg("interaction log entry lost on shutdown")
			}
		default:
			return nil
		}
	}
}

// Pending reports how many entries wait for a retry.
func (l *Logger) Pending() int {
	return len(l.queue)
}

func (l *Logger) write(ctx context.Context, e core.InteractionEntry) {
	err := l.retrier.Do(ctx, func() error {
		return l.repo.Append(ctx, e)
	})
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("entry_id", e.ID).Str("item_id", e.ItemID).
			Msg("interaction log entry lost after retries")
	}
}
