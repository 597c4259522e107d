// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"log/slog"

	"github.com/hollowpoint/llmrelay/internal/config"
	"github.com/hollowpoint/llmrelay/internal/conversation"
	"github.com/hollowpoint/llmrelay/internal/database"
	"github.com/hollowpoint/llmrelay/internal/preset"
	"github.com/hollowpoint/llmrelay/internal/processor"
)

// BotInfo identifies the bot account. It is filled in after startup once
// GetMe has answered, before polling begins.
type BotInfo struct {
	ID        int64
	Username  string
	FirstName string
}

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Registry  *conversation.Registry
	Presets   *preset.Registry
	Processor *processor.Processor
	BotInfo   *BotInfo
}
