package srv

import (
	"context"
	"fmt"
	"sync"

	"github.com/sandevgo/memobot/pkg/log"
)

// cleanupService closes a resource (the store, the embedding cache) when the
// services shut down. It does nothing on start and closes at most once.
type cleanupService struct {
	name    string
	cleanup func() error
	once    sync.Once
}

func (c *cleanupService) Start(ctx context.Context) error {
	return nil
}

func (c *cleanupService) Shutdown(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		if c.cleanup == nil {
			return
		}
		log.FromCtx(ctx).Debug().Str("resource", c.name).Msg("closing")
		if cerr := c.cleanup(); cerr != nil {
			err = fmt.Errorf("close %s: %w", c.name, cerr)
		}
	})
	return err
}

func NewCleanup(name string, fn func() error) Service {
	return &cleanupService{name: name, cleanup: fn}
}
