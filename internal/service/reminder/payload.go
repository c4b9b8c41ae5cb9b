package reminder

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/conv"
	"github.com/sandevgo/memobot/pkg/log"
)

// payload renders the reminder as Markdown. Lookup failures degrade the
// header, never the send.
func (s *Scheduler) payload(ctx context.Context, t core.Trigger, items []core.MemoryItem) string {
	var person, event string
	if t.PersonID != "" {
		p, err := s.people.Get(ctx, t.PersonID)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("person_id", t.PersonID).Msg("reminder person lookup failed")
		} else {
			person = p.DisplayName
		}
	}
	if t.EventID != "" {
		ev, err := s.events.Get(ctx, t.EventID)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("event_id", t.EventID).Msg("reminder event lookup failed")
		} else {
			event = ev.Title
		}
	}
	return FormatReminder(person, event, items, s.cfg.ReminderMaxItems)
}

// FormatReminder builds the reminder text. At most limit items are listed.
func FormatReminder(person, event string, items []core.MemoryItem, limit int) string {
	var sb strings.Builder

	switch {
	case person != "" && event != "":
		fmt.Fprintf(&sb, "**Recordatorio para %s** (%s)\n", conv.EscapeMarkdown(person), conv.EscapeMarkdown(event))
	case person != "":
		fmt.Fprintf(&sb, "**Recordatorio para %s**\n", conv.EscapeMarkdown(person))
	case event != "":
		fmt.Fprintf(&sb, "**Recordatorio** (%s)\n", conv.EscapeMarkdown(event))
	default:
		sb.WriteString("**Recordatorio**\n")
	}

	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	for _, it := range items[:limit] {
		text := it.Summary
		if text == "" {
			text = it.Content
		}
		sb.WriteString("- ")
		sb.WriteString(conv.EscapeMarkdown(oneLine(text)))
		sb.WriteString("\n")
	}
	if rest := len(items) - limit; rest > 0 {
		fmt.Fprintf(&sb, "+%d más\n", rest)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// oneLine flattens merged content into a single bullet.
func oneLine(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	parts := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "; ")
}
