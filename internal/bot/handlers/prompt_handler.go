package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type promptHandler struct {
	deps HandlerDeps
}

// NewPromptHandler returns the /prompt command handler: set or clear the
// conversation's custom persona text.
func NewPromptHandler(deps HandlerDeps) bot.HandlerFunc {
	return promptHandler{deps}.Handle
}

func (h promptHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "prompt")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	key := conversationKey(msg)
	state := deps.Registry.GetOrCreate(key)

	// An empty argument clears the override back to the default persona.
	state.SetCustomPrompt(commandArg(msg.Text))
	log.InfoContext(ctx, "custom prompt updated", "conversation", key.String())
	reply(ctx, b, log, msg, deps.Config.Bot.Messages.PromptUpdated)
}
