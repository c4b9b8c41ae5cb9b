package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/providers/intent"
	"github.com/sandevgo/memobot/internal/providers/llm"
	"github.com/sandevgo/memobot/internal/providers/rag"
	"github.com/sandevgo/memobot/internal/providers/vector"
	"github.com/sandevgo/memobot/internal/service/calendar"
	"github.com/sandevgo/memobot/internal/service/command"
	"github.com/sandevgo/memobot/internal/service/interaction"
	"github.com/sandevgo/memobot/internal/service/memory"
	"github.com/sandevgo/memobot/internal/service/people"
	"github.com/sandevgo/memobot/internal/service/reminder"
	"github.com/sandevgo/memobot/internal/storage/sqlite"
	"github.com/sandevgo/memobot/internal/transport/cli"
	"github.com/sandevgo/memobot/internal/transport/telegram"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/sandevgo/memobot/pkg/log"
	"github.com/sandevgo/memobot/pkg/retry"
	"github.com/sandevgo/memobot/pkg/srv"
)

// engine is the wired application shared by every command.
type engine struct {
	app *config.AppConfig
	cfg *config.EngineConfig

	journal   *interaction.Logger
	people    *people.Resolver
	memory    *memory.Memory
	calendar  *calendar.Sync
	scheduler *reminder.Scheduler
	router    *command.Router
	assistant *command.Assistant

	// services hold closers and background loops in start order; they are
	// shut down in reverse.
	services []srv.Service
}

func newEngine(ctx context.Context, app *config.AppConfig, dispatcher core.Dispatcher) (*engine, error) {
	logger := log.FromCtx(ctx)

	cfg := config.NewEngineConfig(ctx)
	embCfg := config.NewEmbeddingConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)

	e := &engine{app: app, cfg: cfg}

	// 1. Storage
	db, err := sqlite.NewDB(ctx, app.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	e.services = append(e.services, srv.NewCleanup("store", db.Close))
	items, events, peopleRepo, triggers, interactions := repos(db)

	clk := clock.System()

	// 2. Interaction log
	e.journal = interaction.NewLogger(interactions, clk, retry.NewDefaultConfig())
	e.services = append(e.services, e.journal)

	// 3. Embedding and similarity index
	embedder, err := rag.NewEmbedder(ctx, embCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	e.services = append(e.services, srv.NewCleanup("embedding cache", func() error {
		embedder.Close()
		return nil
	}))

	index, err := vector.NewIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize similarity index: %w", err)
	}

	// 4. Domain services
	e.people = people.NewResolver(peopleRepo, clk)
	e.scheduler = reminder.NewScheduler(reminder.Deps{
		Triggers:   triggers,
		Items:      items,
		People:     peopleRepo,
		Events:     events,
		Dispatcher: dispatcher,
		Journal:    e.journal,
		Clock:      clk,
	}, cfg)
	linker := calendar.NewLinker(events, items, triggers, e.scheduler, clk, cfg)
	e.calendar = calendar.NewSync(events, e.people, linker, clk)
	e.memory = memory.NewMemory(cfg, memory.Deps{
		Items:     items,
		Events:    events,
		People:    e.people,
		Embedder:  embedder,
		Index:     index,
		Journal:   e.journal,
		Linker:    linker,
		Scheduler: e.scheduler,
		Clock:     clk,
	})

	// 5. Conversation
	parser, err := newParser(ctx, llmCfg)
	if err != nil {
		return nil, err
	}
	e.router = command.New(command.NewCommands(command.Deps{
		Memory:   e.memory,
		People:   e.people,
		Calendar: e.calendar,
	}))
	e.router.Register(command.NewHelpCommand(e.router))
	e.assistant = command.NewAssistant(e.router, parser, e.memory)

	// 6. The similarity index lives in memory only.
	n, err := e.memory.RebuildIndex(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("index rebuild incomplete, the sweep will re-embed")
	}
	logger.Debug().Int("vectors", n).Msg("similarity index rebuilt")

	return e, nil
}

func repos(db *sql.DB) (*sqlite.ItemsRepo, *sqlite.EventsRepo, *sqlite.PeopleRepo, *sqlite.TriggersRepo, *sqlite.InteractionsRepo) {
	return sqlite.NewItemsRepo(db),
		sqlite.NewEventsRepo(db),
		sqlite.NewPeopleRepo(db),
		sqlite.NewTriggersRepo(db),
		sqlite.NewInteractionsRepo(db)
}

func newParser(ctx context.Context, cfg *config.LLMConfig) (core.IntentParser, error) {
	rules := intent.NewRuleParser()
	if !cfg.Enabled() {
		return rules, nil
	}
	ai, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	return intent.NewLLMParser(ai, rules), nil
}

// newDispatcher picks the reminder channel: the Telegram owner chat when
// enabled, otherwise the console.
func newDispatcher(ctx context.Context, app *config.AppConfig) (core.Dispatcher, *telegram.Bot, error) {
	if !app.EnableTelegram {
		return cli.NewConsole(os.Stdout), nil, nil
	}
	bot, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx))
	if err != nil {
		return nil, nil, err
	}
	return bot.Dispatcher(), bot, nil
}

// close flushes the interaction log and releases storage.
func (e *engine) close(ctx context.Context) {
	for i := len(e.services) - 1; i >= 0; i-- {
		if err := e.services[i].Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", e.services[i])
		}
	}
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
