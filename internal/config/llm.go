package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/memobot/pkg/log"
)

// LLMConfig configures the optional LLM intent parser. Provider "none" keeps
// the rule-based parser only.
type LLMConfig struct {
	Provider string `env:"MEMO_LLM_PROVIDER" envDefault:"none"`
	Model    string `env:"MEMO_LLM_MODEL" envDefault:"gpt-4o-mini"`
	BaseURL  string `env:"MEMO_LLM_BASE_URL"`
	APIKey   string `env:"MEMO_LLM_API_KEY"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return c
}

func (c LLMConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}
