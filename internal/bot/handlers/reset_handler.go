package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type resetHandler struct {
	deps HandlerDeps
}

// NewResetHandler returns the /reset command handler: clear the
// conversation's history and pending events.
func NewResetHandler(deps HandlerDeps) bot.HandlerFunc {
	return resetHandler{deps}.Handle
}

func (h resetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "reset")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	key := conversationKey(msg)
	deps.Registry.GetOrCreate(key).Reset()

	// Drop the persisted snapshot too, or a restart before the next
	// snapshot task would resurrect the cleared history.
	if err := deps.Store.DeleteConversation(ctx, key); err != nil {
		log.WarnContext(ctx, "failed to delete persisted conversation", "conversation", key.String(), "error", err)
	}

	log.InfoContext(ctx, "conversation memory cleared", "conversation", key.String(), "user_id", msg.From.ID)
	reply(ctx, b, log, msg, deps.Config.Bot.Messages.HistoryReset)
}
