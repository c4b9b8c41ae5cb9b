package srv

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/memobot/pkg/log"
)

// Ticker runs fn every interval until ctx is done. When immediate is set the
// first run happens on start instead of after the first interval.
type Ticker struct {
	name      string
	interval  time.Duration
	immediate bool
	fn        func(ctx context.Context) error

	// mu is held for the length of a run.
	mu      sync.Mutex
	stopped bool
}

func NewTicker(name string, interval time.Duration, immediate bool, fn func(ctx context.Context) error) *Ticker {
	return &Ticker{name: name, interval: interval, immediate: immediate, fn: fn}
}

func (t *Ticker) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, t.name)
	logger := log.FromCtx(ctx)
	logger.Info().Dur("interval", t.interval).Msg("starting worker")

	if t.immediate {
		t.run(ctx)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down worker")
			return nil
		case <-ticker.C:
			t.run(ctx)
		}
	}
}

// Shutdown waits for a run in progress and prevents further runs, so stores
// closed after the worker are not used mid-run.
func (t *Ticker) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.mu.Lock()
		t.stopped = true
		t.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Ticker) run(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if err := t.fn(ctx); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("worker run failed")
	}
}
