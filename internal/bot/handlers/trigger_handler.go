package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type triggerHandler struct {
	deps HandlerDeps
}

// NewTriggerHandler returns the /trigger command handler: override the
// random-trigger probability for a group conversation.
func NewTriggerHandler(deps HandlerDeps) bot.HandlerFunc {
	return triggerHandler{deps}.Handle
}

func (h triggerHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "trigger")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	key := conversationKey(msg)
	arg := commandArg(msg.Text)
	if arg == "" {
		reply(ctx, b, log, msg, deps.Config.Bot.Messages.ProvideArg)
		return
	}

	prob, err := strconv.ParseFloat(arg, 64)
	if err != nil || prob < 0 || prob > 1 {
		reply(ctx, b, log, msg, "Trigger probability must be a number between 0 and 1.")
		return
	}

	deps.Registry.GetOrCreate(key).SetTriggerProb(prob)
	log.InfoContext(ctx, "trigger probability updated", "conversation", key.String(), "prob", prob)
	reply(ctx, b, log, msg, fmt.Sprintf("Random trigger probability set to %.2f", prob))
}
