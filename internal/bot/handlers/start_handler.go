package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns the /start command handler.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil {
			return
		}
		reply(ctx, b, deps.Logger.With("handler", "start"), msg, deps.Config.Bot.Messages.Welcome)
	}
}
