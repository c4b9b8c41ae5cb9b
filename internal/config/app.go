package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/memobot/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"MEMO_RUNTIME_PATH" envDefault:".memobot"`
	// DatabasePath overrides <runtime>/memobot.db
	DatabasePath string `env:"MEMO_DATABASE_PATH"`

	// Transport Flags
	EnableTelegram bool   `env:"MEMO_ENABLE_TELEGRAM" envDefault:"false"`
	EnableHTTP     bool   `env:"MEMO_ENABLE_HTTP" envDefault:"false"`
	HTTPAddr       string `env:"MEMO_HTTP_ADDR" envDefault:"127.0.0.1:8088"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = GetRuntimePath()
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.RuntimePath, "memobot.db")
}

func (c AppConfig) GetEnvPath() string {
	return filepath.Join(c.RuntimePath, ".env")
}

func (c AppConfig) GetHistoryPath() string {
	return filepath.Join(c.RuntimePath, "input_history")
}
