package intent

import (
	"context"
	"regexp"
	"strings"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/conv"
)

const ruleConfidence = 0.9

var (
	// Matched against lowercased, accent-stripped text.
	createMarkers = []string{"recuerdame", "acuerdame", "apunta", "guarda", "anota"}
	listMarkers   = []string{"que tengo pendiente", "que pendiente", "pendientes", "que tengo que hacer"}

	personCapRe   = regexp.MustCompile(`\bcon\s+(\p{Lu}\p{Ll}+)`)
	personLowerRe = regexp.MustCompile(`\bcon\s+(\p{Ll}+)`)

	commandRe  = regexp.MustCompile(`(?i)\b(recuérdame|recuerdame|acuérdame|acuerdame|apúntame|apuntame|apunta|guarda|anota)\b\s*`)
	ideaTagRe  = regexp.MustCompile(`(?i)\b(esta\s+)?idea\s*:\s*`)
	spacesRe   = regexp.MustCompile(`\s+`)
	leadingRe  = regexp.MustCompile(`(?i)^(de|sobre|que)\s+`)
	trailingRe = regexp.MustCompile(`(?i)\s+de$`)
)

// Words after "con" that are never a person.
var notAPerson = map[string]struct{}{
	"la": {}, "el": {}, "los": {}, "las": {}, "un": {}, "una": {},
	"mi": {}, "mis": {}, "tu": {}, "su": {}, "sus": {}, "lo": {}, "esto": {}, "eso": {},
}

// RuleParser is the keyword parser for Spanish notes. It never guesses a
// person: only an explicit "con <Nombre>" yields one.
type RuleParser struct{}

func NewRuleParser() *RuleParser {
	return &RuleParser{}
}

func (p *RuleParser) Parse(_ context.Context, text string) (core.ParseResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.ParseResult{Intent: core.IntentUnknown}, nil
	}

	folded := strings.ToLower(conv.StripAccents(text))
	res := core.ParseResult{Intent: core.IntentUnknown, PersonName: extractPerson(text)}

	switch {
	case containsAny(folded, createMarkers):
		res.Intent = core.IntentCreateMemory
		res.Confidence = ruleConfidence
		kind := core.KindReminder
		if strings.Contains(folded, "idea") {
			kind = core.KindIdea
		}
		res.Requests = []core.CaptureRequest{{
			Kind:       kind,
			Content:    cleanContent(text, res.PersonName),
			PersonName: res.PersonName,
			Confidence: ruleConfidence,
		}}
	case containsAny(folded, listMarkers):
		res.Intent = core.IntentListPending
		res.Confidence = ruleConfidence
	}
	return res, nil
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func extractPerson(text string) string {
	if m := personCapRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	m := personLowerRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return ""
	}
	if _, skip := notAPerson[conv.StripAccents(m[1])]; skip {
		return ""
	}
	return conv.Capitalize(m[1])
}

func cleanContent(text, person string) string {
	content := commandRe.ReplaceAllString(text, "")
	content = ideaTagRe.ReplaceAllString(content, "")

	if person != "" {
		name := regexp.QuoteMeta(person)
		for _, expr := range []string{
			`(?i)\bhablar\s+con\s+` + name + `\b`,
			`(?i)\bcon\s+` + name + `\b`,
			`(?i)\b` + name + `\b`,
		} {
			content = regexp.MustCompile(expr).ReplaceAllString(content, "")
		}
	}

	content = strings.TrimSpace(spacesRe.ReplaceAllString(content, " "))
	content = leadingRe.ReplaceAllString(content, "")
	content = trailingRe.ReplaceAllString(content, "")
	content = strings.Trim(content, " .,;:")

	if len([]rune(content)) < 3 {
		return text
	}
	return content
}
