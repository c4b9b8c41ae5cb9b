package installer

// Intermediate keys read by later steps and dropped before saving.
const keyChannel = "MEMO_CHANNEL"

const (
	channelTelegram = "telegram"
	channelConsole  = "console"
)

type InstallState struct {
	EnvVars map[string]string
}

func NewInstallState() *InstallState {
	return &InstallState{
		EnvVars: make(map[string]string),
	}
}

func (s *InstallState) is(key, value string) bool {
	return s.EnvVars[key] == value
}
