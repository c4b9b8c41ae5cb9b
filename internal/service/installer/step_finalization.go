package installer

import (
	tea "github.com/charmbracelet/bubbletea"
)

// FinalizationStep computes derived values and drops intermediate ones.
type FinalizationStep struct{}

func NewFinalizationStep() Step {
	return &FinalizationStep{}
}

func (s *FinalizationStep) Init(*InstallState) tea.Cmd {
	return next
}

func (s *FinalizationStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	finalize(state)
	return nil, nil
}

func (s *FinalizationStep) View(state *InstallState) string {
	return "Finalizing configuration...\n"
}

func finalize(state *InstallState) {
	if telegramSelected(state) && state.EnvVars["MEMO_TELEGRAM_TOKEN"] != "" {
		state.EnvVars["MEMO_ENABLE_TELEGRAM"] = "true"
	} else {
		state.EnvVars["MEMO_ENABLE_TELEGRAM"] = "false"
	}
	if state.EnvVars["MEMO_DEBUG"] == "" {
		state.EnvVars["MEMO_DEBUG"] = "0"
	}
	delete(state.EnvVars, keyChannel)
}
