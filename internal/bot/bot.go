// Package bot implements the application lifecycle: it runs the Telegram
// listener and the task scheduler, and flushes conversation state on shutdown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/hollowpoint/llmrelay/internal/config"
	"github.com/hollowpoint/llmrelay/internal/conversation"
	"github.com/hollowpoint/llmrelay/internal/database"
)

const shutdownFlushTimeout = 10 * time.Second

// Bot represents the main application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     database.Store
	registry  *conversation.Registry
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates a new instance of the bot with all required dependencies.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	registry *conversation.Registry,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		store:     store,
		registry:  registry,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on
// context cancellation. Conversation state is persisted before returning.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram listener")

		b.tgBot.Start(gCtx)
		b.logger.Info("Telegram listener stopped")

		if gCtx.Err() == nil {
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	err := g.Wait()

	b.flushState()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

// flushState persists all in-memory conversation state. The parent context
// is already cancelled at this point, so a fresh timeout context is used.
func (b *Bot) flushState() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()

	snapshots := b.registry.SnapshotAll()
	if len(snapshots) == 0 {
		return
	}

	if err := b.store.SaveConversations(ctx, snapshots); err != nil {
		b.logger.Error("Failed to persist conversation state at shutdown", "error", err)
		return
	}

	b.logger.Info("Conversation state persisted at shutdown", "conversations", len(snapshots))
}
