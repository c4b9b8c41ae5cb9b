package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/service/installer"
	"github.com/sandevgo/memobot/internal/service/ui"
	"github.com/sandevgo/memobot/pkg/log"
	menv "github.com/sandevgo/memobot/pkg/env"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := bootstrap(cmd, cmd.ErrOrStderr())
		defer done()
		logger := log.FromCtx(ctx)

		if _, err := installer.RunWizard(); err != nil {
			return err
		}

		envPath := filepath.Join(config.GetRuntimePath(), ".env")
		if err := godotenv.Load(envPath); err != nil {
			logger.Warn().Err(err).Str("path", envPath).Msg("failed to load .env file")
		}
		logger.Info().Msgf("configuration written to %s", envPath)
		fmt.Fprintln(cmd.OutOrStdout(), ui.OKStyle.Render("Setup complete! Run 'memo start'."))
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a .env with every setting at its default",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.GetRuntimePath()
		content, err := defaultEnv()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create runtime directory: %w", err)
		}
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf(".env file already exists at %s", path)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.OKStyle.Render("wrote "+path))
		return nil
	},
}

// defaultEnv renders the defaults of every config group, ignoring the
// current environment.
func defaultEnv() (string, error) {
	app := &config.AppConfig{}
	emb := &config.EmbeddingConfig{}
	llmCfg := &config.LLMConfig{}
	opts := env.Options{Environment: map[string]string{}}
	for _, c := range []any{app, emb, llmCfg} {
		if err := env.ParseWithOptions(c, opts); err != nil {
			return "", err
		}
	}
	return menv.MarshalEnv(app, config.DefaultEngineConfig(), emb, llmCfg)
}

func init() {
	rootCmd.AddCommand(setupCmd, initCmd)
}
