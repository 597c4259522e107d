package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowpoint/llmrelay/internal/conversation"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })

	return NewStore(db, nil)
}

func sampleSnapshot() conversation.Snapshot {
	return conversation.Snapshot{
		PresetName:      "default",
		CustomPrompt:    "be helpful",
		OutputReasoning: true,
		TriggerProb:     0.25,
		LastActive:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		History: []conversation.Turn{
			{Role: conversation.RoleUser, Content: `{"Message":"hi"}`},
			{Role: conversation.RoleAssistant, Content: "hello<botbr>there"},
		},
	}
}

func TestSaveAndLoadConversations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snaps := map[conversation.Key]conversation.Snapshot{
		conversation.GroupKey(-1001234): sampleSnapshot(),
		conversation.PrivateKey(42): {
			PresetName: "fast",
			LastActive: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
			History:    []conversation.Turn{},
		},
	}

	require.NoError(t, store.SaveConversations(ctx, snaps))

	loaded, err := store.LoadConversations(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	got := loaded[conversation.GroupKey(-1001234)]
	assert.Equal(t, "default", got.PresetName)
	assert.Equal(t, "be helpful", got.CustomPrompt)
	assert.True(t, got.OutputReasoning)
	assert.InDelta(t, 0.25, got.TriggerProb, 1e-9)
	require.Len(t, got.History, 2)
	assert.Equal(t, "hello<botbr>there", got.History[1].Content, "delimiters survive the round trip")

	priv := loaded[conversation.PrivateKey(42)]
	assert.Equal(t, "fast", priv.PresetName)
	assert.Empty(t, priv.History)
}

func TestSaveConversationsUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := conversation.GroupKey(1)

	first := sampleSnapshot()
	require.NoError(t, store.SaveConversations(ctx, map[conversation.Key]conversation.Snapshot{key: first}))

	second := first
	second.PresetName = "fast"
	second.History = append(second.History, conversation.Turn{Role: conversation.RoleUser, Content: "more"})
	require.NoError(t, store.SaveConversations(ctx, map[conversation.Key]conversation.Snapshot{key: second}))

	loaded, err := store.LoadConversations(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "fast", loaded[key].PresetName)
	assert.Len(t, loaded[key].History, 3)
}

func TestSaveConversationsEmptyIsNoop(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.SaveConversations(context.Background(), nil))
}

func TestHistoryUnicodeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := conversation.GroupKey(7)

	snap := conversation.Snapshot{
		PresetName: "default",
		LastActive: time.Now().UTC(),
		History: []conversation.Turn{
			{Role: conversation.RoleUser, Content: "你好, こんにちは, привет 🎉"},
			{Role: conversation.RoleAssistant, Content: "emoji reply 👍 with \"quotes\" and \\backslashes\\"},
		},
	}
	require.NoError(t, store.SaveConversations(ctx, map[conversation.Key]conversation.Snapshot{key: snap}))

	loaded, err := store.LoadConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.History, loaded[key].History)
}

func TestDeleteConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := conversation.GroupKey(5)

	require.NoError(t, store.SaveConversations(ctx, map[conversation.Key]conversation.Snapshot{key: sampleSnapshot()}))
	require.NoError(t, store.DeleteConversation(ctx, key))

	loaded, err := store.LoadConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// Deleting a missing conversation is not an error.
	assert.NoError(t, store.DeleteConversation(ctx, conversation.GroupKey(999)))
}

func TestLogMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &MessageRecord{
		ConversationKey: conversation.GroupKey(1).String(),
		SenderID:        1001,
		SenderName:      "Alice",
		Content:         "hello there",
		FromBot:         false,
		SentAt:          time.Now().UTC(),
	}
	require.NoError(t, store.LogMessage(ctx, rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestLogMessageValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.LogMessage(ctx, nil)
	assert.ErrorIs(t, err, ErrPersistence)

	err = store.LogMessage(ctx, &MessageRecord{Content: "missing key"})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestRunMaintenance(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.RunMaintenance(context.Background()))
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
