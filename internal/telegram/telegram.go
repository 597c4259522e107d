// Package telegram handles Telegram bot construction, handler
// registration, and outbound message delivery.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"

	"github.com/hollowpoint/llmrelay/internal/bot/handlers"
	"github.com/hollowpoint/llmrelay/internal/conversation"
)

// NewTelegramBot creates a new Telegram bot instance.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return b, nil
}

// applyMiddleware wraps a handler with middleware; the first middleware in
// the slice ends up outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers command handlers with the bot instance.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	for _, reg := range registered {
		if reg.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", reg.Pattern)
			continue
		}
		final := applyMiddleware(reg.Handler, reg.Middleware)
		b.RegisterHandler(reg.HandlerType, reg.Pattern, reg.MatchType, final)
		log.Debug("Registered handler", "pattern", reg.Pattern, "middleware_count", len(reg.Middleware))
	}

	log.Info("Registered Telegram handlers", "count", len(registered))
	return nil
}

// Sender delivers outbound messages to Telegram. For group conversations
// the key ID is the chat ID; for private ones it is the user ID, which
// Telegram also uses as the private chat ID.
type Sender struct {
	b      *bot.Bot
	logger *slog.Logger
}

// NewSender wraps a bot instance as a processor-facing sender.
func NewSender(b *bot.Bot, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{b: b, logger: logger.With("component", "telegram_sender")}
}

// Send posts one message to the conversation's chat. Fire-and-forget:
// errors are returned for logging only, delivery is not confirmed.
func (s *Sender) Send(ctx context.Context, key conversation.Key, text string) error {
	_, err := s.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: key.ID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", key, err)
	}
	return nil
}
