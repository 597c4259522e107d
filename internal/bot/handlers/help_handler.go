package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const helpText = `Mention me (or just chat, I sometimes chime in) and I'll reply.

Commands:
/preset <name> - switch API preset, "off" disables replies (admin)
/prompt <text> - set the persona for this chat, empty to reset (admin)
/trigger <p>   - set random reply probability 0..1 (admin)
/reset         - clear my memory of this chat (admin)
/reasoning     - toggle relaying of model reasoning (admin)
/help          - this message`

// NewHelpHandler returns the /help command handler.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil {
			return
		}
		reply(ctx, b, deps.Logger.With("handler", "help"), msg, helpText)
	}
}
