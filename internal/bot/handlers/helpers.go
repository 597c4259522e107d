package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// commandArg strips the leading /command (and optional @botname suffix)
// from a message, returning the trimmed argument text.
func commandArg(text string) string {
	if !strings.HasPrefix(text, "/") {
		return strings.TrimSpace(text)
	}
	_, rest, _ := strings.Cut(text, " ")
	return strings.TrimSpace(rest)
}

// reply sends text to the update's chat, logging any delivery failure.
func reply(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   text,
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to send reply", "chat_id", msg.Chat.ID, "error", err)
	}
}
