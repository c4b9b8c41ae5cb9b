package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/memobot/pkg/log"
	"github.com/sandevgo/memobot/pkg/retry"
)

// EngineConfig holds the tunables of consolidation, linking and scheduling.
type EngineConfig struct {
	MergeThreshold     float32 `env:"MEMO_MERGE_THRESHOLD" envDefault:"0.85"`
	DiscussedThreshold float32 `env:"MEMO_DISCUSSED_THRESHOLD" envDefault:"0.80"`
	ConfidenceFloor    float64 `env:"MEMO_CONFIDENCE_FLOOR" envDefault:"0.5"`
	TopK               int     `env:"MEMO_DEDUP_TOP_K" envDefault:"5"`
	ConflictRetries    int     `env:"MEMO_CONFLICT_RETRIES" envDefault:"3"`

	EmbedTimeout  time.Duration `env:"MEMO_EMBED_TIMEOUT" envDefault:"5s"`
	SearchTimeout time.Duration `env:"MEMO_SEARCH_TIMEOUT" envDefault:"3s"`

	LinkOffset time.Duration `env:"MEMO_LINK_OFFSET" envDefault:"30m"`

	TickInterval        time.Duration `env:"MEMO_TICK_INTERVAL" envDefault:"30s"`
	TickTimeout         time.Duration `env:"MEMO_TICK_TIMEOUT" envDefault:"20s"`
	TickBatch           int           `env:"MEMO_TICK_BATCH" envDefault:"50"`
	DispatchTimeout     time.Duration `env:"MEMO_DISPATCH_TIMEOUT" envDefault:"10s"`
	DispatchConcurrency int           `env:"MEMO_DISPATCH_CONCURRENCY" envDefault:"4"`
	MaxDispatchAttempts int           `env:"MEMO_DISPATCH_MAX_ATTEMPTS" envDefault:"5"`
	RetryInitialDelay   time.Duration `env:"MEMO_RETRY_INITIAL_DELAY" envDefault:"30s"`
	RetryMaxDelay       time.Duration `env:"MEMO_RETRY_MAX_DELAY" envDefault:"30m"`
	ClaimTimeout        time.Duration `env:"MEMO_CLAIM_TIMEOUT" envDefault:"5m"`
	ReminderMaxItems    int           `env:"MEMO_REMINDER_MAX_ITEMS" envDefault:"10"`

	SweepInterval time.Duration `env:"MEMO_SWEEP_INTERVAL" envDefault:"5m"`
	SweepBatch    int           `env:"MEMO_SWEEP_BATCH" envDefault:"50"`
}

func NewEngineConfig(ctx context.Context) *EngineConfig {
	c := &EngineConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Engine config")
	}
	if err := c.Validate(); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("invalid Engine config")
	}
	return c
}

// DefaultEngineConfig returns the envDefault values without reading the environment.
func DefaultEngineConfig() *EngineConfig {
	c := &EngineConfig{}
	_ = env.ParseWithOptions(c, env.Options{Environment: map[string]string{}})
	return c
}

func (c *EngineConfig) Validate() error {
	if c.MergeThreshold <= 0 || c.MergeThreshold > 1 {
		return fmt.Errorf("merge threshold must be in (0,1], got %v", c.MergeThreshold)
	}
	if c.DiscussedThreshold <= 0 || c.DiscussedThreshold > c.MergeThreshold {
		return fmt.Errorf("discussed threshold must be in (0, merge threshold], got %v", c.DiscussedThreshold)
	}
	if c.TopK < 1 {
		return fmt.Errorf("top-k must be positive, got %d", c.TopK)
	}
	if c.MaxDispatchAttempts < 1 {
		return fmt.Errorf("max dispatch attempts must be positive, got %d", c.MaxDispatchAttempts)
	}
	if c.TickTimeout <= 0 || c.DispatchTimeout <= 0 {
		return fmt.Errorf("tick and dispatch timeouts must be positive")
	}
	return nil
}

// DispatchBackoff is the persisted retry policy for failed reminder dispatch.
func (c *EngineConfig) DispatchBackoff() *retry.Config {
	return &retry.Config{
		MaxRetries:    c.MaxDispatchAttempts,
		BackoffFactor: 2,
		InitialDelay:  c.RetryInitialDelay,
		MaxDelay:      c.RetryMaxDelay,
	}
}
