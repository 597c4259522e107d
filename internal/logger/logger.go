// Package logger provides structured logging via log/slog with
// configurable level and format, plus a Telegram update-logging middleware.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a slog Logger with the specified level. If jsonOutput
// is true, logs are JSON; otherwise text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Middleware creates a logging middleware for the Telegram bot. It logs
// basic information about each processed update at debug level.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()

			entry := log.With("update_id", update.ID)
			if update.Message != nil {
				entry = entry.With(
					"message_id", update.Message.ID,
					"chat_id", update.Message.Chat.ID,
					"text_preview", truncateString(update.Message.Text, 50),
				)
				if update.Message.From != nil {
					entry = entry.With("user_id", update.Message.From.ID)
				}
			}

			next(ctx, b, update)

			entry.DebugContext(ctx, "processed update", "duration", time.Since(start))
		}
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
