package installer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InputStep collects one free-text value. Secret values are masked.
type InputStep struct {
	title    string
	envKey   string
	optional bool
	applies  func(*InstallState) bool
	input    textinput.Model
}

func NewInputStep(title, envKey, placeholder string, secret, optional bool, applies func(*InstallState) bool) Step {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 40
	ti.Placeholder = placeholder
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	return &InputStep{title: title, envKey: envKey, optional: optional, applies: applies, input: ti}
}

func (s *InputStep) Init(state *InstallState) tea.Cmd {
	if s.applies != nil && !s.applies(state) {
		return next
	}
	return textinput.Blink
}

func (s *InputStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.applies != nil && !s.applies(state) {
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		value := strings.TrimSpace(s.input.Value())
		if value == "" && !s.optional {
			return s, nil
		}
		if value != "" {
			state.EnvVars[s.envKey] = value
		}
		return nil, nil
	}
	return s, cmd
}

func (s *InputStep) View(state *InstallState) string {
	hint := ""
	if s.optional {
		hint = " (optional - press Enter to skip)"
	}
	return fmt.Sprintf("Enter your %s%s:\n\n%s\n\n(press enter to confirm)\n", s.title, hint, s.input.View())
}
