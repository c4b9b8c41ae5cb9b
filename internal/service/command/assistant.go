package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/memory"
	"github.com/sandevgo/memobot/pkg/log"
)

// Assistant is the conversational entry point shared by the chat transports:
// slash commands go to the router, everything else through the intent parser.
type Assistant struct {
	router    core.CmdRouter
	parser    core.IntentParser
	memory    MemoryService
	formatter *ResponseFormatter
}

func NewAssistant(router core.CmdRouter, parser core.IntentParser, mem MemoryService) *Assistant {
	return &Assistant{
		router:    router,
		parser:    parser,
		memory:    mem,
		formatter: NewResponseFormatter(),
	}
}

// Ingest parses free text and captures every request it yields.
func (a *Assistant) Ingest(ctx context.Context, text string) (core.ParseResult, []memory.Outcome, error) {
	res, err := a.parser.Parse(ctx, text)
	if err != nil {
		return res, nil, err
	}
	if res.Intent != core.IntentCreateMemory {
		return res, nil, nil
	}
	if len(res.Requests) == 0 {
		return res, nil, fmt.Errorf("%w: nothing to capture", core.ErrInvalidInput)
	}
	outcomes, err := a.memory.CaptureAll(ctx, res.Requests)
	return res, outcomes, err
}

// Handle returns the Markdown reply for one inbound message.
func (a *Assistant) Handle(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if reply, ok := a.router.Execute(ctx, text); ok {
		return reply
	}

	res, outcomes, err := a.Ingest(ctx, text)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to handle message")
		if errors.Is(err, core.ErrInvalidInput) && !errors.Is(err, core.ErrLowConfidence) {
			return a.notUnderstood()
		}
		return a.formatter.Error("captura", err)
	}

	switch res.Intent {
	case core.IntentListPending:
		reply, _ := a.router.Execute(ctx, strings.TrimSpace("/pending "+res.PersonName))
		return reply
	case core.IntentCreateMemory:
		replies := make([]string, 0, len(outcomes))
		for i, o := range outcomes {
			replies = append(replies, a.formatter.Outcome(o, res.Requests[i].PersonName))
		}
		return a.formatter.Combine(replies...)
	}
	return a.notUnderstood()
}

func (a *Assistant) notUnderstood() string {
	return a.formatter.Combine(
		"🤔 No te he entendido.",
		a.formatter.Tip(`prueba con "recuérdame hablar con Toni de salarios" o /help.`),
	)
}
