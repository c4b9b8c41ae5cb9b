package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:     "empty input",
			input:    "",
			contains: []string{""},
		},
		{
			name:     "bold person header",
			input:    "**Toni**",
			contains: []string{"<strong>Toni</strong>"},
		},
		{
			name:     "inline code id",
			input:    "`abc123`",
			contains: []string{"<code>abc123</code>"},
		},
		{
			name:        "reminder bullets",
			input:       "- salarios\n- vacaciones",
			contains:    []string{"• salarios\n", "• vacaciones\n"},
			notContains: []string{"<ul>", "<li>"},
		},
		{
			name:        "numbered pending list",
			input:       "1. salarios\n2. vacaciones",
			contains:    []string{"1. salarios\n", "2. vacaciones\n"},
			notContains: []string{"<ol>", "<li>"},
		},
		{
			name:        "script tags sanitized",
			input:       "<script>alert('xss')</script>",
			notContains: []string{"<script>", "alert"},
		},
		{
			name:        "heading becomes bold line",
			input:       "# Briefing",
			contains:    []string{"<b>Briefing</b>"},
			notContains: []string{"<h1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkdownToTelegramHTML([]byte(tt.input))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestMarkdownToText_Reminder(t *testing.T) {
	got := MarkdownToText("**Recordatorio para Toni** (1:1)\n- salarios\n- vacaciones")
	assert.Contains(t, got, "Recordatorio para Toni")
	assert.Contains(t, got, "• salarios")
	assert.Contains(t, got, "• vacaciones")
	assert.NotContains(t, got, "**")
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText("<strong>Toni</strong>\nsalarios")
	assert.Contains(t, got, "Toni")
	assert.Contains(t, got, "salarios")
	assert.NotContains(t, got, "<strong>")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `subida \*urgente\* de \_sueldo\_`, EscapeMarkdown("subida *urgente* de _sueldo_"))
	assert.Equal(t, "plain", EscapeMarkdown("plain"))
}
