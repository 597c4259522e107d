// Package tasks implements the scheduled background tasks: periodic state
// snapshots and database maintenance.
package tasks

import (
	"log/slog"

	"github.com/hollowpoint/llmrelay/internal/config"
	"github.com/hollowpoint/llmrelay/internal/conversation"
	"github.com/hollowpoint/llmrelay/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Registry *conversation.Registry
	Config   *config.Config
}
