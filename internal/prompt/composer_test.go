package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowpoint/llmrelay/internal/conversation"
)

func TestBuildSystemPromptUsesDefaultPersona(t *testing.T) {
	c := NewComposer([]string{"muri", "bot"}, "You are a friendly assistant.")

	got := c.BuildSystemPrompt("")
	assert.Contains(t, got, "muri, bot")
	assert.Contains(t, got, SegmentDelimiter)
	assert.True(t, strings.HasSuffix(got, "You are a friendly assistant."))
}

func TestBuildSystemPromptCustomOverridesDefault(t *testing.T) {
	c := NewComposer([]string{"muri"}, "default persona")

	got := c.BuildSystemPrompt("You are a pirate.")
	assert.True(t, strings.HasSuffix(got, "You are a pirate."))
	assert.NotContains(t, got, "default persona")
}

func TestSerializeEventsSingle(t *testing.T) {
	c := NewComposer(nil, "")
	events := []conversation.RawEvent{{
		SenderName: "Alice",
		SenderID:   1001,
		Text:       "hello",
		SendTime:   time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}}

	got, err := c.SerializeEvents(events)
	require.NoError(t, err)
	assert.Equal(t,
		`{"SenderNickname":"Alice","SenderUserId":"1001","Message":"hello","SendTime":"2025-06-01T12:30:00Z"}`,
		got)
}

func TestSerializeEventsCommaJoined(t *testing.T) {
	c := NewComposer(nil, "")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	events := []conversation.RawEvent{
		{SenderName: "Alice", SenderID: 1, Text: "first", SendTime: base},
		{SenderName: "Bob", SenderID: 2, Text: "second", SendTime: base.Add(time.Minute)},
	}

	got, err := c.SerializeEvents(events)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(got, "},{"), "objects are joined with a bare comma")
	assert.NotContains(t, got, "\n")
	assert.Contains(t, got, `"SenderUserId":"2"`)
}

func TestSerializeEventsDoesNotEscapeHTML(t *testing.T) {
	c := NewComposer(nil, "")
	events := []conversation.RawEvent{{
		SenderName: "Alice",
		SenderID:   1,
		Text:       "a < b && c > d",
		SendTime:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}}

	got, err := c.SerializeEvents(events)
	require.NoError(t, err)
	assert.Contains(t, got, "a < b && c > d")
	assert.NotContains(t, got, "\\u003c")
}

func TestSerializeEventsEmpty(t *testing.T) {
	c := NewComposer(nil, "")
	got, err := c.SerializeEvents(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSplitReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{
			name:  "no delimiter",
			reply: "just one message",
			want:  []string{"just one message"},
		},
		{
			name:  "plain split",
			reply: "Hi<botbr>there",
			want:  []string{"Hi", "there"},
		},
		{
			name:  "trims and drops empty fragments",
			reply: "Hi<botbr>there<botbr>  trimmed  <botbr><botbr>  ",
			want:  []string{"Hi", "there", "trimmed"},
		},
		{
			name:  "only whitespace",
			reply: "   ",
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitReply(tt.reply))
		})
	}
}
