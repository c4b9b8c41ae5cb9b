package installer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sandevgo/memobot/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Step represents a single step in the setup wizard. Init sees the state
// collected so far, so a step that does not apply can finish immediately.
type Step interface {
	Init(state *InstallState) tea.Cmd
	Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd)
	View(state *InstallState) string
}

func needsEmbeddingKey(s *InstallState) bool {
	return s.is("MEMO_EMBEDDING_PROVIDER", config.EmbeddingOpenAI) || s.is("MEMO_EMBEDDING_PROVIDER", config.EmbeddingCustom)
}

func needsEmbeddingURL(s *InstallState) bool {
	return s.is("MEMO_EMBEDDING_PROVIDER", config.EmbeddingOllama) || s.is("MEMO_EMBEDDING_PROVIDER", config.EmbeddingCustom)
}

func llmEnabled(s *InstallState) bool {
	p := s.EnvVars["MEMO_LLM_PROVIDER"]
	return p != "" && p != "none"
}

func telegramSelected(s *InstallState) bool {
	return s.is(keyChannel, channelTelegram)
}

func getSteps() []Step {
	return []Step{
		NewChoiceStep("Embedding provider for duplicate detection", "MEMO_EMBEDDING_PROVIDER", []Choice{
			{config.EmbeddingHash, "Local hashing (offline, no setup)"},
			{config.EmbeddingOpenAI, "OpenAI"},
			{config.EmbeddingOllama, "Ollama"},
			{config.EmbeddingCustom, "Custom OpenAI-compatible endpoint"},
		}, nil),
		NewInputStep("Embedding API key", "MEMO_EMBEDDING_API_KEY", "sk-...", true, false, needsEmbeddingKey),
		NewInputStep("Embedding base URL", "MEMO_EMBEDDING_BASE_URL", "http://localhost:11434/v1", false, false, needsEmbeddingURL),
		NewChoiceStep("Intent parser", "MEMO_LLM_PROVIDER", []Choice{
			{"none", "Spanish keyword rules only"},
			{"openai", "OpenAI"},
			{"openrouter", "OpenRouter"},
			{"ollama", "Ollama"},
		}, nil),
		NewInputStep("LLM API key", "MEMO_LLM_API_KEY", "sk-...", true, true, llmEnabled),
		NewChoiceStep("Chat channel", keyChannel, []Choice{
			{channelTelegram, "Telegram"},
			{channelConsole, "Console only (memo chat)"},
		}, nil),
		NewInputStep("Telegram Bot Token", "MEMO_TELEGRAM_TOKEN", "123456789:ABCDEF...", true, false, telegramSelected),
		NewInputStep("Telegram User ID (Owner)", "MEMO_TELEGRAM_OWNER_ID", "123456789", false, false, telegramSelected),
		NewFinalizationStep(),
		NewSaveEnvStep(),
	}
}

type nextMsg struct{}

func next() tea.Msg { return nextMsg{} }

// model is the main Bubble Tea model that orchestrates the steps
type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
	err         error
	width       int
	height      int
}

func initialModel() model {
	return model{
		steps: getSteps(),
		state: NewInstallState(),
	}
}

func (m model) Init() tea.Cmd {
	if len(m.steps) > 0 {
		return m.steps[0].Init(m.state)
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	nextStep, cmd := m.steps[m.currentStep].Update(msg, m.state, m.width, m.height)
	if nextStep == nil {
		m.currentStep++
		if m.currentStep >= len(m.steps) {
			return m, tea.Quit
		}
		return m, m.steps[m.currentStep].Init(m.state)
	}
	m.steps[m.currentStep] = nextStep

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return "Setup cancelled.\n"
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if m.currentStep >= len(m.steps) {
		return "Configuration complete!\n"
	}
	return titleStyle.Render("Setting up memobot") + "\n\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard starts the TUI and returns the collected configuration.
func RunWizard() (*InstallState, error) {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	finalModel := m.(model)
	if finalModel.quitting {
		return nil, fmt.Errorf("setup interrupted")
	}
	return finalModel.state, nil
}
