package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask creates the scheduled task function for running
// database maintenance.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled SQL maintenance task")
		startTime := time.Now()

		err := deps.Store.RunMaintenance(ctx)

		duration := time.Since(startTime)
		if err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", duration)
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance task completed", "duration", duration)
		return nil
	}
}
