package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type reasoningHandler struct {
	deps HandlerDeps
}

// NewReasoningHandler returns the /reasoning command handler: toggle
// relaying of the model's reasoning text as a side message.
func NewReasoningHandler(deps HandlerDeps) bot.HandlerFunc {
	return reasoningHandler{deps}.Handle
}

func (h reasoningHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "reasoning")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	key := conversationKey(msg)
	enabled := deps.Registry.GetOrCreate(key).ToggleReasoning()

	log.InfoContext(ctx, "reasoning output toggled", "conversation", key.String(), "enabled", enabled)
	if enabled {
		reply(ctx, b, log, msg, deps.Config.Bot.Messages.ReasoningOn)
	} else {
		reply(ctx, b, log, msg, deps.Config.Bot.Messages.ReasoningOff)
	}
}
