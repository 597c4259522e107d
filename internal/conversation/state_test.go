package conversation

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		HistoryCap:  20,
		PendingCap:  30,
		PresetName:  "default",
		TriggerProb: 0.05,
	}
}

func event(name, text string) RawEvent {
	return RawEvent{
		SenderName: name,
		SenderID:   42,
		Text:       text,
		SendTime:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBeginDrainSingleOwner(t *testing.T) {
	s := NewState(testOptions())

	assert.True(t, s.BeginDrain(event("alice", "one")))
	assert.False(t, s.BeginDrain(event("bob", "two")))
	assert.False(t, s.BeginDrain(event("carol", "three")))

	// All three events are queued regardless of ownership.
	for i := 0; i < 3; i++ {
		_, ok := s.NextQueued()
		require.True(t, ok)
	}
}

func TestNextQueuedClosesDrainWhenEmpty(t *testing.T) {
	s := NewState(testOptions())

	require.True(t, s.BeginDrain(event("alice", "hi")))
	_, ok := s.NextQueued()
	require.True(t, ok)

	_, ok = s.NextQueued()
	require.False(t, ok)

	// The drain closed, so the next event wins ownership again.
	assert.True(t, s.BeginDrain(event("bob", "later")))
}

func TestBeginDrainConcurrentSingleFlight(t *testing.T) {
	s := NewState(testOptions())

	const n = 64
	var owners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if s.BeginDrain(event("user", fmt.Sprintf("msg %d", i))) {
				owners.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), owners.Load(), "exactly one goroutine owns the drain")

	count := 0
	for {
		if _, ok := s.NextQueued(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, n, count, "every event reaches the queue")
}

func TestBeginBatchSnapshotsPendingAndHistory(t *testing.T) {
	s := NewState(testOptions())
	s.CommitAssistant("earlier reply")
	s.Record(event("alice", "hello"))
	s.Record(event("bob", "hey"))

	batch, ok := s.BeginBatch(10)
	require.True(t, ok)
	assert.Len(t, batch.Events, 2)
	assert.Equal(t, "hello", batch.Events[0].Text)
	assert.Equal(t, []Turn{{Role: RoleAssistant, Content: "earlier reply"}}, batch.History)
	assert.Equal(t, "default", batch.PresetName)
}

func TestBeginBatchHistoryWindow(t *testing.T) {
	s := NewState(testOptions())
	for i := 0; i < 6; i++ {
		s.CommitAssistant(fmt.Sprintf("turn %d", i))
	}
	s.Record(event("alice", "hello"))

	batch, ok := s.BeginBatch(2)
	require.True(t, ok)
	require.Len(t, batch.History, 2)
	assert.Equal(t, "turn 4", batch.History[0].Content)
	assert.Equal(t, "turn 5", batch.History[1].Content)
}

func TestBeginBatchEmptyPendingClosesDrain(t *testing.T) {
	s := NewState(testOptions())
	require.True(t, s.BeginDrain(event("alice", "hi")))
	_, ok := s.NextQueued()
	require.True(t, ok)

	// Pending never recorded anything, so the batch aborts and the drain
	// closes even though the queue notionally had work.
	_, ok = s.BeginBatch(10)
	require.False(t, ok)
	assert.True(t, s.BeginDrain(event("bob", "again")))
}

func TestCommitUserDropsOnlySnapshottedEvents(t *testing.T) {
	s := NewState(testOptions())
	s.Record(event("alice", "first"))
	s.Record(event("bob", "second"))

	batch, ok := s.BeginBatch(10)
	require.True(t, ok)

	// A third event arrives while the completion call is in flight.
	s.Record(event("carol", "third"))

	s.CommitUser("serialized batch", batch)

	pending := s.PendingEvents()
	require.Len(t, pending, 1)
	assert.Equal(t, "third", pending[0].Text)

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "serialized batch", history[0].Content)
}

func TestCommitUserAccountsForInFlightEvictions(t *testing.T) {
	opts := testOptions()
	opts.PendingCap = 3
	s := NewState(opts)

	s.Record(event("a", "one"))
	s.Record(event("b", "two"))
	s.Record(event("c", "three"))

	batch, ok := s.BeginBatch(10)
	require.True(t, ok)
	require.Len(t, batch.Events, 3)

	// Two more events overflow the ring during the call, evicting "one"
	// and "two" which were part of the snapshot.
	s.Record(event("d", "four"))
	s.Record(event("e", "five"))

	s.CommitUser("batch", batch)

	pending := s.PendingEvents()
	require.Len(t, pending, 2)
	assert.Equal(t, "four", pending[0].Text)
	assert.Equal(t, "five", pending[1].Text)
}

func TestCommitAssistantPairsWithUserTurn(t *testing.T) {
	s := NewState(testOptions())
	s.Record(event("alice", "hi"))
	batch, _ := s.BeginBatch(10)

	s.CommitUser("user payload", batch)
	s.CommitAssistant("reply text")

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "reply text", history[1].Content)
}

func TestFailedBatchLeavesStateUntouched(t *testing.T) {
	s := NewState(testOptions())
	s.Record(event("alice", "hi"))

	batch, ok := s.BeginBatch(10)
	require.True(t, ok)
	require.Len(t, batch.Events, 1)

	// On failure the caller simply never commits. Pending and history must
	// be exactly as before the batch.
	assert.Len(t, s.PendingEvents(), 1)
	assert.Empty(t, s.History())

	// The same events are offered again on the next batch.
	batch2, ok := s.BeginBatch(10)
	require.True(t, ok)
	assert.Equal(t, batch.Events, batch2.Events)
}

func TestResetClearsHistoryAndPending(t *testing.T) {
	s := NewState(testOptions())
	s.Record(event("alice", "hi"))
	s.CommitAssistant("reply")
	s.SetCustomPrompt("pirate mode")

	s.Reset()

	assert.Empty(t, s.History())
	assert.Empty(t, s.PendingEvents())
	assert.Equal(t, "pirate mode", s.CustomPrompt(), "reset keeps settings")
	assert.Equal(t, "default", s.PresetName())
}

func TestToggleReasoning(t *testing.T) {
	s := NewState(testOptions())
	assert.False(t, s.OutputReasoning())
	assert.True(t, s.ToggleReasoning())
	assert.True(t, s.OutputReasoning())
	assert.False(t, s.ToggleReasoning())
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewState(testOptions())
	s.SetPresetName("fast")
	s.SetCustomPrompt("be terse")
	s.SetTriggerProb(0.3)
	s.ToggleReasoning()
	s.CommitAssistant("hello there")
	s.Record(event("alice", "pending stays out"))

	snap := s.Snapshot()
	assert.Equal(t, "fast", snap.PresetName)
	assert.Equal(t, "be terse", snap.CustomPrompt)
	assert.True(t, snap.OutputReasoning)
	assert.InDelta(t, 0.3, snap.TriggerProb, 1e-9)
	require.Len(t, snap.History, 1)

	restored := NewState(testOptions())
	restored.restore(snap)
	assert.Equal(t, "fast", restored.PresetName())
	assert.Equal(t, "be terse", restored.CustomPrompt())
	assert.True(t, restored.OutputReasoning())
	assert.Equal(t, snap.History, restored.History())
	assert.Empty(t, restored.PendingEvents(), "pending events are not persisted")
}

func TestRestoreTruncatesOversizedHistory(t *testing.T) {
	opts := testOptions()
	opts.HistoryCap = 2
	s := NewState(opts)

	snap := Snapshot{
		PresetName: "default",
		History: []Turn{
			{Role: RoleUser, Content: "old"},
			{Role: RoleAssistant, Content: "older reply"},
			{Role: RoleUser, Content: "newest"},
		},
	}
	s.restore(snap)

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "older reply", history[0].Content)
	assert.Equal(t, "newest", history[1].Content)
}
