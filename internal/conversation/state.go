package conversation

import (
	"sync"
	"time"
)

// Role tags a turn in the model-facing history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PresetOff is the preset name that disables processing for a conversation.
const PresetOff = "off"

// Turn is one role-tagged message unit in the model-facing history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RawEvent is a single inbound chat message, normalized by the transport.
// Text already carries placeholders for non-text content (reply quotes,
// images, voice notes).
type RawEvent struct {
	SenderName string
	SenderID   int64
	Text       string
	SendTime   time.Time
}

// Options configures a newly created State.
type Options struct {
	HistoryCap  int
	PendingCap  int
	PresetName  string
	TriggerProb float64
}

// State is the mutable record for one conversation. All access goes through
// methods; each method is one atomic step of the turn-processing state
// machine, so the drain loop never observes a half-applied mutation.
type State struct {
	mu sync.Mutex

	presetName      string
	customPrompt    string
	outputReasoning bool
	triggerProb     float64
	lastActive      time.Time

	history *Ring[Turn]
	pending *Ring[RawEvent]

	// queue and draining are operational only, never persisted.
	queue    []RawEvent
	draining bool
}

// NewState creates a conversation state with empty history and pending
// buffers.
func NewState(opts Options) *State {
	return &State{
		presetName:  opts.PresetName,
		triggerProb: opts.TriggerProb,
		lastActive:  time.Now(),
		history:     NewRing[Turn](opts.HistoryCap),
		pending:     NewRing[RawEvent](opts.PendingCap),
	}
}

// Record appends an inbound event to the pending buffer. Every observed
// event is recorded, whether or not it triggers a drain.
func (s *State) Record(ev RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Push(ev)
	s.lastActive = time.Now()
}

// BeginDrain enqueues ev for processing and reports whether the caller now
// owns the drain. Exactly one caller gets true until the drain closes; a
// false return means the event rides along with the already-running drain.
func (s *State) BeginDrain(ev RawEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, ev)
	if s.draining {
		return false
	}
	s.draining = true
	return true
}

// NextQueued pops one queued event. When the queue is empty it closes the
// drain (clears the draining flag) in the same critical section, so an
// event arriving after the last dequeue either lands in this drain's queue
// or wins BeginDrain for a fresh one, never both and never neither.
func (s *State) NextQueued() (RawEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		s.draining = false
		return RawEvent{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

// Batch is an atomic snapshot of everything one completion call needs.
type Batch struct {
	Events          []RawEvent
	History         []Turn
	PresetName      string
	CustomPrompt    string
	OutputReasoning bool

	evictionsMark uint64
}

// BeginBatch snapshots the pending buffer and the last historyWindow turns
// for one completion call. If the pending buffer is empty the backlog was
// already consumed by an earlier iteration: the drain closes (queue cleared,
// flag dropped) and false is returned.
func (s *State) BeginBatch(historyWindow int) (Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Len() == 0 {
		s.queue = nil
		s.draining = false
		return Batch{}, false
	}
	return Batch{
		Events:          s.pending.Items(),
		History:         s.history.Last(historyWindow),
		PresetName:      s.presetName,
		CustomPrompt:    s.customPrompt,
		OutputReasoning: s.outputReasoning,
		evictionsMark:   s.pending.Evictions(),
	}, true
}

// CommitUser appends the synthetic user turn for a successful batch and
// removes exactly the snapshotted events from the pending buffer. Events
// that arrived after the snapshot stay pending for the next batch; events
// the ring evicted while the call was in flight are not double-counted.
func (s *State) CommitUser(content string, batch Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Push(Turn{Role: RoleUser, Content: content})

	drop := len(batch.Events) - int(s.pending.Evictions()-batch.evictionsMark)
	if drop > 0 {
		s.pending.DropFront(drop)
	}
}

// CommitAssistant appends the assistant reply turn, completing the
// user/assistant pair started by CommitUser.
func (s *State) CommitAssistant(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Push(Turn{Role: RoleAssistant, Content: content})
}

// Reset clears history and pending events. Queued drain work is left in
// place; the drain loop's empty-pending guard turns it into a no-op.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
	s.pending.Clear()
}

// PresetName returns the active preset name.
func (s *State) PresetName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presetName
}

// SetPresetName switches the active preset. The special name "off"
// disables processing for this conversation.
func (s *State) SetPresetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presetName = name
}

// CustomPrompt returns the conversation's persona override, empty if unset.
func (s *State) CustomPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customPrompt
}

// SetCustomPrompt sets the persona override. An empty string restores the
// configured default persona.
func (s *State) SetCustomPrompt(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customPrompt = text
}

// OutputReasoning reports whether model reasoning text is relayed.
func (s *State) OutputReasoning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputReasoning
}

// ToggleReasoning flips reasoning relay and returns the new value.
func (s *State) ToggleReasoning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputReasoning = !s.outputReasoning
	return s.outputReasoning
}

// TriggerProb returns the random-trigger probability for this conversation.
func (s *State) TriggerProb() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggerProb
}

// SetTriggerProb overrides the random-trigger probability.
func (s *State) SetTriggerProb(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggerProb = p
}

// LastActive returns the time of the last recorded activity.
func (s *State) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// History returns a copy of the committed history, oldest first.
func (s *State) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Items()
}

// PendingEvents returns a copy of the pending buffer, oldest first.
func (s *State) PendingEvents() []RawEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Items()
}

// Snapshot captures the persistent fields of a conversation.
type Snapshot struct {
	PresetName      string
	CustomPrompt    string
	OutputReasoning bool
	TriggerProb     float64
	LastActive      time.Time
	History         []Turn
}

// Snapshot returns the persistent view of the state. Pending events and
// drain bookkeeping are deliberately excluded.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		PresetName:      s.presetName,
		CustomPrompt:    s.customPrompt,
		OutputReasoning: s.outputReasoning,
		TriggerProb:     s.triggerProb,
		LastActive:      s.lastActive,
		History:         s.history.Items(),
	}
}

// restore overwrites the persistent fields from a snapshot. History beyond
// the ring capacity is truncated oldest-first by the ring itself.
func (s *State) restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presetName = snap.PresetName
	s.customPrompt = snap.CustomPrompt
	s.outputReasoning = snap.OutputReasoning
	s.triggerProb = snap.TriggerProb
	if !snap.LastActive.IsZero() {
		s.lastActive = snap.LastActive
	}
	s.history.Clear()
	for _, t := range snap.History {
		s.history.Push(t)
	}
}
