package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that only lets the configured admin user
// through. Everyone else gets a "not authorized" reply.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, b, update)
				return
			}

			userID := update.Message.From.ID
			if userID != deps.Config.Telegram.AdminID {
				chatID := update.Message.Chat.ID
				log := deps.Logger.With("middleware", "admin_only")
				log.WarnContext(ctx, "Unauthorized command attempt", "user_id", userID, "chat_id", chatID)

				_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: chatID,
					Text:   deps.Config.Bot.Messages.NotAuthorized,
				})
				if err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
