// Package main contains the entrypoint for the chat relay bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hollowpoint/llmrelay/internal/ai"
	"github.com/hollowpoint/llmrelay/internal/bot"
	"github.com/hollowpoint/llmrelay/internal/bot/handlers"
	"github.com/hollowpoint/llmrelay/internal/bot/tasks"
	"github.com/hollowpoint/llmrelay/internal/config"
	"github.com/hollowpoint/llmrelay/internal/conversation"
	"github.com/hollowpoint/llmrelay/internal/database"
	"github.com/hollowpoint/llmrelay/internal/logger"
	"github.com/hollowpoint/llmrelay/internal/preset"
	"github.com/hollowpoint/llmrelay/internal/processor"
	"github.com/hollowpoint/llmrelay/internal/prompt"
	"github.com/hollowpoint/llmrelay/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components, handles graceful
// shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	registry := conversation.NewRegistry(conversation.Options{
		HistoryCap:  cfg.Bot.HistorySize,
		PendingCap:  cfg.Bot.PendingSize,
		PresetName:  cfg.Bot.DefaultPreset,
		TriggerProb: cfg.Bot.RandomTriggerProb,
	}, log)

	restoreState(ctx, log, store, registry)

	presetRegistry, err := preset.NewRegistry(presetsFromConfig(cfg.Presets), log)
	if err != nil {
		log.Error("Failed to build preset registry", "error", err)
		return 1
	}

	composer := prompt.NewComposer(cfg.Bot.Nicknames, cfg.Bot.DefaultPrompt)
	aiClient := ai.NewClient(cfg.Bot.RequestTimeout, log)

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Registry: registry,
		Presets:  presetRegistry,
	}

	// The default handler needs the processor, which needs the sender, which
	// needs the bot. Bind the handler after the full dependency set exists;
	// the bot does not dispatch updates until Start.
	var defaultHandler tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			defaultHandler(ctx, b, update)
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	hDeps.BotInfo = &handlers.BotInfo{ID: me.ID, Username: me.Username, FirstName: me.FirstName}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	sender := telegram.NewSender(tg, log)
	hDeps.Processor = processor.New(registry, presetRegistry, composer, aiClient, sender, store, processor.Config{
		HistoryWindow: cfg.Bot.HistoryWindow,
		SegmentDelay:  cfg.Bot.SegmentDelay,
		FailureNotice: cfg.Bot.Messages.FailureNotice,
	}, log)

	defaultHandler = handlers.NewMessageHandler(hDeps)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Registry: registry,
		Config:   cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, store, registry, tg, sched)

	log.Info("Starting bot")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully")
	time.Sleep(time.Second)
	return 0
}

// restoreState loads persisted conversation snapshots into the registry.
// Persistence is best-effort: a failed load is logged and the bot starts
// with empty state instead of aborting.
func restoreState(ctx context.Context, log *slog.Logger, store database.Store, registry *conversation.Registry) {
	snaps, err := store.LoadConversations(ctx)
	if err != nil {
		log.Error("Failed to load persisted conversation state, starting empty", "error", err)
		return
	}
	registry.RestoreAll(snaps)
}

func presetsFromConfig(configs []config.PresetConfig) []preset.Preset {
	presets := make([]preset.Preset, 0, len(configs))
	for _, pc := range configs {
		presets = append(presets, preset.Preset{
			Name:        pc.Name,
			APIBase:     pc.APIBase,
			APIKey:      pc.APIKey,
			ModelName:   pc.ModelName,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
		})
	}
	return presets
}
