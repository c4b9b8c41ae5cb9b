package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/conv"
	"github.com/sandevgo/memobot/pkg/log"
)

const (
	llmConfidence     = 0.85
	defaultLLMTimeout = 20 * time.Second
)

var itemKinds = map[string]core.ItemKind{
	"REMINDER": core.KindReminder,
	"IDEA":     core.KindIdea,
	"NOTE":     core.KindNote,
	"TASK":     core.KindReminder,
}

type llmResponse struct {
	Intent string  `json:"intent"`
	Person *string `json:"person"`
	Items  []struct {
		Type    string  `json:"type"`
		Content string  `json:"content"`
		DueAt   *string `json:"due_at"`
	} `json:"items"`
}

// LLMParser asks a chat model for a structured capture and falls back to the
// rule parser on any failure.
type LLMParser struct {
	ai       core.AIProvider
	fallback core.IntentParser
	timeout  time.Duration
}

func NewLLMParser(ai core.AIProvider, fallback core.IntentParser) *LLMParser {
	return &LLMParser{ai: ai, fallback: fallback, timeout: defaultLLMTimeout}
}

func (p *LLMParser) Parse(ctx context.Context, text string) (core.ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return core.ParseResult{Intent: core.IntentUnknown}, nil
	}

	res, err := p.parse(ctx, text)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("llm parser failed, using rules")
		return p.fallback.Parse(ctx, text)
	}
	return res, nil
}

func (p *LLMParser) parse(ctx context.Context, text string) (core.ParseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: systemPrompt},
		{Role: core.RoleUser, Content: text},
	})
	if err != nil {
		return core.ParseResult{}, fmt.Errorf("llm chat: %w", err)
	}
	return parseResponse(resp.Content, text)
}

func parseResponse(content, original string) (core.ParseResult, error) {
	raw := extractJSONObject(content)
	if raw == "" {
		return core.ParseResult{}, errors.New("no JSON object found in response")
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return core.ParseResult{}, fmt.Errorf("unmarshal: %w", err)
	}

	res := core.ParseResult{Intent: core.Intent(parsed.Intent)}
	if parsed.Person != nil {
		res.PersonName = mentionedPerson(*parsed.Person, original)
	}

	switch res.Intent {
	case core.IntentUnknown:
		return res, nil
	case core.IntentListPending:
		res.Confidence = llmConfidence
		return res, nil
	case core.IntentCreateMemory:
	default:
		return core.ParseResult{}, fmt.Errorf("invalid intent %q", parsed.Intent)
	}

	if len(parsed.Items) == 0 {
		return core.ParseResult{}, errors.New("missing or empty items")
	}

	res.Confidence = llmConfidence
	for _, it := range parsed.Items {
		kind, ok := itemKinds[strings.ToUpper(it.Type)]
		if !ok {
			return core.ParseResult{}, fmt.Errorf("invalid item type %q", it.Type)
		}
		c := strings.TrimSpace(it.Content)
		if c == "" {
			return core.ParseResult{}, errors.New("item content missing")
		}
		req := core.CaptureRequest{
			Kind:       kind,
			Content:    c,
			PersonName: res.PersonName,
			Confidence: llmConfidence,
		}
		if it.DueAt != nil && *it.DueAt != "" {
			if due, err := time.Parse(time.RFC3339, *it.DueAt); err == nil {
				req.DueAt = &due
			}
		}
		res.Requests = append(res.Requests, req)
	}
	return res, nil
}

// mentionedPerson drops a person the model returned but the text never names.
func mentionedPerson(person, text string) string {
	person = strings.TrimSpace(person)
	if person == "" {
		return ""
	}
	if !strings.Contains(" "+conv.NormalizeName(text)+" ", " "+conv.NormalizeName(person)) {
		return ""
	}
	return person
}

func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content[start:], "}")
	if end == -1 {
		return ""
	}

	return content[start : start+end+1]
}
