package tasks

import (
	"context"
	"fmt"
	"time"
)

// newStateSnapshotTask creates the scheduled task that persists all in-memory
// conversation state to the database.
func newStateSnapshotTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "state_snapshot")

	return func(ctx context.Context) error {
		startTime := time.Now()

		snapshots := deps.Registry.SnapshotAll()
		if len(snapshots) == 0 {
			log.DebugContext(ctx, "No conversation state to persist")
			return nil
		}

		if err := deps.Store.SaveConversations(ctx, snapshots); err != nil {
			log.ErrorContext(ctx, "State snapshot failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("state snapshot failed: %w", err)
		}

		log.InfoContext(ctx, "Conversation state persisted",
			"conversations", len(snapshots),
			"duration", time.Since(startTime))
		return nil
	}
}
