package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

// Handler turns one inbound message into a Markdown reply.
type Handler interface {
	Handle(ctx context.Context, text string) string
}

type Bot struct {
	bot     *tele.Bot
	handler Handler
	sender  *sender
	ownerID int64
}

// NewBot connects to Telegram. Inbound messages are ignored until Serve
// installs a handler; the Dispatcher works right away.
func NewBot(ctx context.Context, cfg *config.TelegramConfig) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:     b,
		sender:  newSender(b),
		ownerID: cfg.OwnerID,
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Only the owner talks to the assistant.
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != bot.ownerID {
				return nil
			}
			return next(c)
		}
	})

	return bot, nil
}

// Serve routes text messages to h.
func (b *Bot) Serve(h Handler) {
	b.handler = h
	b.bot.Handle(tele.OnText, b.handleMessage)
}

// Dispatcher returns the reminder channel bound to the owner's chat.
func (b *Bot) Dispatcher() *Dispatcher {
	return &Dispatcher{sender: b.sender, to: &tele.User{ID: b.ownerID}}
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Int64("owner_id", b.ownerID).Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx, ok := c.Get(baseContextKey).(context.Context)
	if !ok {
		ctx = context.Background()
	}
	ctx = log.WithComponent(ctx, "telegram")

	_ = c.Notify(tele.Typing)

	reply := b.handler.Handle(ctx, c.Text())
	if reply == "" {
		return nil
	}
	if err := b.sender.sendMarkdown(ctx, c.Chat(), reply, false); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to reply")
		return err
	}
	return nil
}
