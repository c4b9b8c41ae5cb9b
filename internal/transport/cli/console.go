package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sandevgo/memobot/pkg/conv"
	"github.com/sandevgo/memobot/pkg/log"
)

// Console is a reminder channel for runs without Telegram: reminders are
// rendered as plain text on a writer and mirrored to the log.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// SetOutput redirects reminders, e.g. to a readline prompt.
func (c *Console) SetOutput(out io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = out
}

func (c *Console) Send(ctx context.Context, personID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	plain := conv.MarkdownToText(text)
	log.FromCtx(ctx).Info().Str("person_id", personID).Str("reminder", plain).Msg("reminder delivered to console")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return nil
	}
	if _, err := fmt.Fprintf(c.out, "\n%s\n", plain); err != nil {
		return fmt.Errorf("console dispatch: %w", err)
	}
	return nil
}
