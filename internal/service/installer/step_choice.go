package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type Choice struct {
	Value string
	Label string
}

// ChoiceStep stores the selected value under envKey.
type ChoiceStep struct {
	title   string
	envKey  string
	choices []Choice
	applies func(*InstallState) bool
	cursor  int
}

func NewChoiceStep(title, envKey string, choices []Choice, applies func(*InstallState) bool) Step {
	return &ChoiceStep{title: title, envKey: envKey, choices: choices, applies: applies}
}

func (s *ChoiceStep) Init(state *InstallState) tea.Cmd {
	if s.applies != nil && !s.applies(state) {
		return next
	}
	return nil
}

func (s *ChoiceStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.applies != nil && !s.applies(state) {
		return nil, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.choices)-1 {
				s.cursor++
			}
		case "enter":
			state.EnvVars[s.envKey] = s.choices[s.cursor].Value
			return nil, nil
		}
	}
	return s, nil
}

func (s *ChoiceStep) View(state *InstallState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n\n", s.title)
	for i, c := range s.choices {
		if s.cursor == i {
			b.WriteString(selStyle.Render("> "+c.Label) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+c.Label) + "\n")
		}
	}
	b.WriteString("\n(press ctrl+c to quit)\n")
	return b.String()
}
