package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/memory"
	"github.com/sandevgo/memobot/pkg/conv"
)

const shortIDLen = 8

type ResponseFormatter struct{}

func NewResponseFormatter() *ResponseFormatter {
	return &ResponseFormatter{}
}

func (f *ResponseFormatter) Info(title string) string {
	return fmt.Sprintf("📋 **%s**\n", title)
}

func (f *ResponseFormatter) Success(message string) string {
	return fmt.Sprintf("✅ **%s**\n", message)
}

func (f *ResponseFormatter) Error(operation string, err error) string {
	issue := err.Error()
	switch {
	case errors.Is(err, core.ErrLowConfidence):
		issue = "No he entendido bien el mensaje. ¿Puedes reformularlo?"
	case errors.Is(err, core.ErrDependencyUnavailable):
		issue = "Un servicio externo no responde, inténtalo más tarde."
	}
	return fmt.Sprintf("❌ **Error en /%s**\n\n%s\n", operation, conv.EscapeMarkdown(issue))
}

func (f *ResponseFormatter) Label(label, value string) string {
	return fmt.Sprintf("**%s**  ›  `%s`\n", label, value)
}

func (f *ResponseFormatter) Usage(command string) string {
	return fmt.Sprintf("**Uso**:\n```%s```\n", command)
}

func (f *ResponseFormatter) Examples(examples []string) string {
	var sb strings.Builder
	sb.WriteString("**Ejemplos**:\n")
	for _, ex := range examples {
		sb.WriteString(fmt.Sprintf("`%s`\n", ex))
	}
	return sb.String()
}

func (f *ResponseFormatter) List(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("› %s\n", item))
	}
	return sb.String()
}

func (f *ResponseFormatter) Tip(text string) string {
	return fmt.Sprintf("**Tip**: %s\n", text)
}

func (f *ResponseFormatter) Section(emoji, title, content string) string {
	return fmt.Sprintf("%s **%s**\n%s\n", emoji, title, content)
}

func (f *ResponseFormatter) Combine(sections ...string) string {
	return strings.Join(sections, "\n")
}

// Item renders one memory item as a list line with its short id.
func (f *ResponseFormatter) Item(it core.MemoryItem) string {
	text := it.Summary
	if text == "" {
		text = it.Content
	}
	text = strings.Join(strings.Fields(text), " ")
	line := fmt.Sprintf("`%s` %s", ShortID(it.ID), conv.EscapeMarkdown(text))
	if it.DueAt != nil {
		line += fmt.Sprintf(" (⏰ %s)", it.DueAt.Format("02/01 15:04"))
	}
	return line
}

func (f *ResponseFormatter) Items(items []core.MemoryItem) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = f.Item(it)
	}
	return f.List(lines)
}

// Outcome renders the reply to a capture.
func (f *ResponseFormatter) Outcome(o memory.Outcome, person string) string {
	it := o.Item()
	who := ""
	if person != "" {
		who = " para " + conv.EscapeMarkdown(person)
	}

	switch v := o.(type) {
	case memory.Created:
		msg := f.Success("Apuntado" + who)
		msg += f.List([]string{f.Item(it)})
		if v.Link.Linked && v.Link.Event != nil {
			msg += fmt.Sprintf("Te lo recordaré antes de **%s** (%s).\n",
				conv.EscapeMarkdown(v.Link.Event.Title), v.Link.Event.StartAt.Format("02/01 15:04"))
		} else if v.Link.Linked {
			msg += fmt.Sprintf("Te lo recordaré el %s.\n", v.Link.TriggerAt.Format("02/01 15:04"))
		}
		return msg
	case memory.Merged:
		return f.Success("Ya lo tenía apuntado"+who+", lo he completado") + f.List([]string{f.Item(it)})
	case memory.Duplicate:
		return f.Info("Ya estaba apuntado"+who) + f.List([]string{f.Item(it)})
	case memory.AlreadyDiscussed:
		return f.Info("Ya hablaste de esto"+who) + f.List([]string{f.Item(it)}) +
			f.Tip("si quieres volver a tratarlo, reformúlalo con más detalle.")
	}
	return ""
}

// Briefing renders a briefing as Markdown.
func (f *ResponseFormatter) Briefing(b core.Briefing) string {
	title := "Briefing"
	if b.Person != nil {
		title += " con " + conv.EscapeMarkdown(b.Person.DisplayName)
	}
	sections := []string{f.Info(title)}
	if b.Event != nil {
		sections = append(sections, f.Label("Reunión", b.Event.Title+" · "+b.Event.StartAt.Format(time.DateTime)))
	}
	if len(b.Pending) == 0 {
		sections = append(sections, "Nada pendiente.\n")
	} else {
		sections = append(sections, f.Section("📌", "Pendiente", f.Items(b.Pending)))
	}
	if len(b.RecentlyDiscussed) > 0 {
		sections = append(sections, f.Section("🗂", "Hablado recientemente", f.Items(b.RecentlyDiscussed)))
	}
	return f.Combine(sections...)
}

// ShortID is the prefix shown to users and accepted back by commands.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
