package handlers

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hollowpoint/llmrelay/internal/conversation"
	"github.com/hollowpoint/llmrelay/internal/database"
)

const auditLogTimeout = 5 * time.Second

type messageHandler struct {
	deps HandlerDeps
}

// NewMessageHandler creates the default handler: it normalizes every chat
// message into a RawEvent, records it as pending context, and triggers the
// turn processor when the bot is addressed (or by random chance in groups).
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		// Commands are handled by their own handlers.
		return
	}

	text := normalizeText(msg)
	if text == "" {
		return
	}

	key := conversationKey(msg)
	state := deps.Registry.GetOrCreate(key)

	if state.PresetName() == conversation.PresetOff {
		log.DebugContext(ctx, "conversation is off, ignoring message", "conversation", key.String())
		return
	}

	ev := conversation.RawEvent{
		SenderName: displayName(msg.From),
		SenderID:   msg.From.ID,
		Text:       text,
		SendTime:   time.Unix(int64(msg.Date), 0),
	}

	deps.Processor.Record(key, ev)
	h.auditLog(ctx, key, ev)

	if !h.shouldTrigger(msg, key, state) {
		log.DebugContext(ctx, "message recorded without trigger", "conversation", key.String())
		return
	}

	log.DebugContext(ctx, "triggering drain", "conversation", key.String(), "user_id", msg.From.ID)
	deps.Processor.Trigger(ctx, key, ev)
}

// shouldTrigger decides whether this message starts (or joins) a drain.
// Private chats always trigger; group chats trigger on an at-mention, a
// bare nickname, a reply to the bot, or by random chance.
func (h messageHandler) shouldTrigger(msg *models.Message, key conversation.Key, state *conversation.State) bool {
	if key.Private {
		return true
	}

	username := h.deps.BotInfo.Username
	if username != "" {
		mention := "@" + username
		for _, e := range msg.Entities {
			if e.Type != models.MessageEntityTypeMention {
				continue
			}
			if strings.EqualFold(entityText(msg.Text, e.Offset, e.Length), mention) {
				return true
			}
		}
		for _, w := range strings.Fields(strings.ToLower(msg.Text)) {
			if strings.TrimFunc(w, unicode.IsPunct) == strings.ToLower(username) {
				return true
			}
		}
	}

	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == h.deps.BotInfo.ID {
		return true
	}

	return rand.Float64() < state.TriggerProb()
}

// auditLog appends the raw event to the message log; failures are logged
// and otherwise ignored.
func (h messageHandler) auditLog(ctx context.Context, key conversation.Key, ev conversation.RawEvent) {
	logCtx, cancel := context.WithTimeout(ctx, auditLogTimeout)
	defer cancel()

	err := h.deps.Store.LogMessage(logCtx, &database.MessageRecord{
		ConversationKey: key.String(),
		SenderID:        ev.SenderID,
		SenderName:      ev.SenderName,
		Content:         ev.Text,
		SentAt:          ev.SendTime,
	})
	if err != nil {
		h.deps.Logger.WarnContext(ctx, "failed to audit-log message", "conversation", key.String(), "error", err)
	}
}

// entityText extracts the substring an entity addresses. Telegram entity
// offsets and lengths count UTF-16 code units, not bytes.
func entityText(text string, offset, length int) string {
	units := utf16.Encode([]rune(text))
	if offset < 0 || length <= 0 || offset+length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[offset : offset+length]))
}

// conversationKey maps a Telegram message to its conversation key.
func conversationKey(msg *models.Message) conversation.Key {
	if msg.Chat.Type == models.ChatTypePrivate {
		return conversation.PrivateKey(msg.From.ID)
	}
	return conversation.GroupKey(msg.Chat.ID)
}

// displayName picks the name other chat members would see.
func displayName(u *models.User) string {
	if u.Username != "" {
		return u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

// normalizeText flattens a Telegram message into plain text, substituting
// placeholders for non-text content the model cannot see.
func normalizeText(msg *models.Message) string {
	var b strings.Builder

	if quoted := msg.ReplyToMessage; quoted != nil && quoted.From != nil {
		quotedText := quoted.Text
		if quotedText == "" {
			quotedText = quoted.Caption
		}
		fmt.Fprintf(&b, "[replying to %s: %s]\n", displayName(quoted.From), quotedText)
	}

	switch {
	case msg.Text != "":
		b.WriteString(msg.Text)
	case msg.Caption != "":
		b.WriteString(msg.Caption)
	}

	if len(msg.Photo) > 0 {
		b.WriteString(" [image]")
	}
	if msg.Voice != nil {
		b.WriteString(" [voice]")
	}
	if msg.Sticker != nil {
		b.WriteString(" [sticker]")
	}

	return strings.TrimSpace(b.String())
}
