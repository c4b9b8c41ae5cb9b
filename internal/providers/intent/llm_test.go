package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAI struct {
	reply string
	err   error
	seen  []core.Message
}

func (f *fakeAI) Chat(_ context.Context, history []core.Message) (core.Message, error) {
	f.seen = history
	if f.err != nil {
		return core.Message{}, f.err
	}
	return core.Message{Role: "assistant", Content: f.reply}, nil
}

func TestLLMParser(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		err      error
		text     string
		intent   core.Intent
		person   string
		contents []string
		kinds    []core.ItemKind
		fellBack bool
	}{
		{
			name:     "multiple items",
			text:     "Recuérdame hablar con Toni de salarios y de las vacaciones",
			reply:    "```json\n{\"intent\":\"create_memory\",\"person\":\"Toni\",\"items\":[{\"type\":\"REMINDER\",\"content\":\"Salarios\"},{\"type\":\"TASK\",\"content\":\"Vacaciones\"}]}\n```",
			intent:   core.IntentCreateMemory,
			person:   "Toni",
			contents: []string{"Salarios", "Vacaciones"},
			kinds:    []core.ItemKind{core.KindReminder, core.KindReminder},
		},
		{
			name:     "invented person is dropped",
			text:     "apunta la idea de un bot de recetas",
			reply:    `{"intent":"create_memory","person":"Carlos","items":[{"type":"IDEA","content":"Bot de recetas"}]}`,
			intent:   core.IntentCreateMemory,
			contents: []string{"Bot de recetas"},
			kinds:    []core.ItemKind{core.KindIdea},
		},
		{
			name:   "list pending",
			text:   "qué tengo pendiente",
			reply:  `{"intent":"list_pending","person":null,"items":[]}`,
			intent: core.IntentListPending,
		},
		{
			name:     "invalid type falls back to rules",
			text:     "Recuérdame hablar con Toni de salarios",
			reply:    `{"intent":"create_memory","person":"Toni","items":[{"type":"LIST_ITEM","content":"x"}]}`,
			intent:   core.IntentCreateMemory,
			person:   "Toni",
			contents: []string{"salarios"},
			kinds:    []core.ItemKind{core.KindReminder},
			fellBack: true,
		},
		{
			name:     "chat error falls back to rules",
			text:     "Recuérdame hablar con Toni de salarios",
			err:      errors.New("connection refused"),
			intent:   core.IntentCreateMemory,
			person:   "Toni",
			contents: []string{"salarios"},
			kinds:    []core.ItemKind{core.KindReminder},
			fellBack: true,
		},
		{
			name:   "garbage falls back to rules",
			text:   "hola",
			reply:  "no sé",
			intent: core.IntentUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := &fakeAI{reply: tt.reply, err: tt.err}
			p := NewLLMParser(ai, NewRuleParser())

			res, err := p.Parse(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, res.Intent)
			assert.Equal(t, tt.person, res.PersonName)

			require.Len(t, res.Requests, len(tt.contents))
			for i, req := range res.Requests {
				assert.Equal(t, tt.contents[i], req.Content)
				assert.Equal(t, tt.kinds[i], req.Kind)
				assert.Equal(t, tt.person, req.PersonName)
			}
			if tt.fellBack {
				assert.Equal(t, ruleConfidence, res.Confidence)
			}

			require.Len(t, ai.seen, 2)
			assert.Equal(t, core.RoleSystem, ai.seen[0].Role)
			assert.Equal(t, tt.text, ai.seen[1].Content)
		})
	}
}

func TestParseResponse_DueAt(t *testing.T) {
	res, err := parseResponse(
		`{"intent":"create_memory","person":null,"items":[{"type":"REMINDER","content":"Dentista","due_at":"2026-03-02T09:00:00Z"},{"type":"NOTE","content":"Llamar","due_at":"mañana"}]}`,
		"dentista mañana a las 9",
	)
	require.NoError(t, err)
	require.Len(t, res.Requests, 2)
	require.NotNil(t, res.Requests[0].DueAt)
	assert.Equal(t, 9, res.Requests[0].DueAt.Hour())
	assert.Nil(t, res.Requests[1].DueAt)
	assert.Equal(t, core.KindNote, res.Requests[1].Kind)
}
