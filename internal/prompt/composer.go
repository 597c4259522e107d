// Package prompt builds the model-facing text: the system prompt, the
// serialized pending-event payload, and the reply segmentation.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hollowpoint/llmrelay/internal/conversation"
)

// SegmentDelimiter separates the fragments of a multi-message reply. The
// system prompt instructs the model to emit it, so the value is a wire
// contract and must not change.
const SegmentDelimiter = "<botbr>"

// eventPayload is the per-event JSON object the model is instructed to
// parse. Field names are part of the prompt contract; keep them stable.
type eventPayload struct {
	SenderNickname string `json:"SenderNickname"`
	SenderUserID   string `json:"SenderUserId"`
	Message        string `json:"Message"`
	SendTime       string `json:"SendTime"`
}

// Composer builds system prompts and event payloads.
type Composer struct {
	nicknames      []string
	defaultPersona string
}

// NewComposer creates a composer. nicknames are the names the bot answers
// to; defaultPersona is used when a conversation has no custom prompt.
func NewComposer(nicknames []string, defaultPersona string) *Composer {
	return &Composer{nicknames: nicknames, defaultPersona: defaultPersona}
}

// BuildSystemPrompt renders the fixed behavior rules plus the persona text.
// customPrompt overrides the default persona when non-empty.
func (c *Composer) BuildSystemPrompt(customPrompt string) string {
	persona := c.defaultPersona
	if customPrompt != "" {
		persona = customPrompt
	}

	var b strings.Builder
	fmt.Fprintf(&b,
		"You are chatting casually in a chat group. People usually call you %s. "+
			"Every incoming message tells you its sender and send time; address senders by their nickname.\n",
		strings.Join(c.nicknames, ", "))
	b.WriteString(`Your replies must follow these rules:
- You may answer with multiple messages; separate every two messages with ` + SegmentDelimiter + `, with no extra newlines or spaces around it.
- Apart from ` + SegmentDelimiter + `, do not put any similar marker in a message.
- Do not use markdown formatting; the chat client does not render it.
- Write like a regular person: keep each message short and prefer splitting your answer across more messages.
- Code is the exception: never split it, send it as one single message.
- You may greet a sender politely, but only the first time you answer that sender.
- You can mention group members by inserting @username into a message. Mentioning the sender back is optional.
- When several messages are pending, prefer the ones that mention you; ignore stale ones, or choose not to reply to them at all.
- If you need to reason, keep the reasoning as short as possible to save time.
Below is your persona. If it tells you to play a role or gives you a name, that name takes precedence.
`)
	b.WriteString(persona)
	return b.String()
}

// SerializeEvents renders pending events as comma-joined JSON objects.
// This exact layout is what the system prompt teaches the model to parse.
func (c *Composer) SerializeEvents(events []conversation.RawEvent) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, ev := range events {
		if i > 0 {
			buf.WriteString(",")
		}
		err := enc.Encode(eventPayload{
			SenderNickname: ev.SenderName,
			SenderUserID:   fmt.Sprintf("%d", ev.SenderID),
			Message:        ev.Text,
			SendTime:       ev.SendTime.Format(time.RFC3339),
		})
		if err != nil {
			return "", fmt.Errorf("serialize event: %w", err)
		}
		// Encoder terminates each object with a newline; the payload is a
		// single line.
		buf.Truncate(buf.Len() - 1)
	}
	return buf.String(), nil
}

// SplitReply splits a reply on the segment delimiter, trims surrounding
// whitespace from each fragment, and drops fragments that end up empty.
func SplitReply(reply string) []string {
	parts := strings.Split(reply, SegmentDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
