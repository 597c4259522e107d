package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hollowpoint/llmrelay/internal/conversation"
)

type presetHandler struct {
	deps HandlerDeps
}

// NewPresetHandler returns the /preset command handler: switch the
// conversation's API preset, or "off" to disable replies.
func NewPresetHandler(deps HandlerDeps) bot.HandlerFunc {
	return presetHandler{deps}.Handle
}

func (h presetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "preset")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	key := conversationKey(msg)
	state := deps.Registry.GetOrCreate(key)
	name := commandArg(msg.Text)

	msgs := deps.Config.Bot.Messages

	if name == "" {
		reply(ctx, b, log, msg, msgs.ProvideArg)
		return
	}

	if name == conversation.PresetOff {
		state.SetPresetName(name)
		log.InfoContext(ctx, "conversation disabled", "conversation", key.String())
		reply(ctx, b, log, msg, msgs.PresetOff)
		return
	}

	if !deps.Presets.Has(name) {
		listing := "- " + strings.Join(deps.Presets.Names(), "\n- ")
		reply(ctx, b, log, msg, fmt.Sprintf(msgs.PresetList, state.PresetName(), listing))
		return
	}

	state.SetPresetName(name)
	log.InfoContext(ctx, "preset switched", "conversation", key.String(), "preset", name)
	reply(ctx, b, log, msg, fmt.Sprintf(msgs.PresetSwitched, name))
}
