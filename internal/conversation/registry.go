package conversation

import (
	"log/slog"
	"sync"
)

// Registry owns all in-memory conversation states, keyed by Key. It is safe
// for concurrent use; lazy creation is first-writer-wins, so two goroutines
// racing on the same key always observe the same State.
type Registry struct {
	mu     sync.Mutex
	states map[Key]*State
	opts   Options
	logger *slog.Logger
}

// NewRegistry creates an empty registry. opts supplies the defaults for
// lazily created states.
func NewRegistry(opts Options, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		states: make(map[Key]*State),
		opts:   opts,
		logger: logger.With("component", "conversation_registry"),
	}
}

// GetOrCreate returns the state for key, creating it with defaults on first
// sight.
func (r *Registry) GetOrCreate(key Key) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[key]; ok {
		return st
	}
	r.logger.Info("creating conversation state", "conversation", key.String())
	st := NewState(r.opts)
	r.states[key] = st
	return st
}

// Get returns the state for key if it exists.
func (r *Registry) Get(key Key) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[key]
	return st, ok
}

// Len returns the number of tracked conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// SnapshotAll captures the persistent view of every conversation, for the
// persistence gateway.
func (r *Registry) SnapshotAll() map[Key]Snapshot {
	r.mu.Lock()
	states := make(map[Key]*State, len(r.states))
	for k, st := range r.states {
		states[k] = st
	}
	r.mu.Unlock()

	// Per-state locks are taken outside the registry lock so a slow
	// conversation cannot stall unrelated lookups.
	out := make(map[Key]Snapshot, len(states))
	for k, st := range states {
		out[k] = st.Snapshot()
	}
	return out
}

// RestoreAll loads previously persisted snapshots, creating states as
// needed. Existing in-memory state for a key is overwritten; intended for
// startup only.
func (r *Registry) RestoreAll(snaps map[Key]Snapshot) {
	for k, snap := range snaps {
		st := r.GetOrCreate(k)
		st.restore(snap)
	}
	r.logger.Info("restored conversation states", "count", len(snaps))
}
