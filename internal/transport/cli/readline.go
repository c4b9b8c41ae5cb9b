package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/pkg/conv"
	"github.com/sandevgo/memobot/pkg/log"
)

// Handler turns one line of input into a Markdown reply.
type Handler interface {
	Handle(ctx context.Context, text string) string
}

type ReadLine struct {
	handler Handler
	rl      *readline.Instance
}

func NewReadLine(handler Handler, cfg *config.AppConfig) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     cfg.GetHistoryPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{handler: handler, rl: rl}, nil
}

// Stdout is safe to write to while a prompt is active.
func (r *ReadLine) Stdout() io.Writer {
	return r.rl.Stdout()
}

func (r *ReadLine) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("chat started. Type 'exit' to quit.")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		if reply := r.handler.Handle(ctx, line); reply != "" {
			fmt.Fprintln(r.rl.Stdout(), conv.MarkdownToText(reply))
		}
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
