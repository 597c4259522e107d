package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"

	DefaultHistorySize       = 20               // committed turns kept per conversation
	DefaultPendingSize       = 30               // raw events buffered per conversation
	DefaultHistoryWindow     = 20               // turns sent with each batch
	DefaultSegmentDelay      = 2 * time.Second  // pause before each reply fragment
	DefaultRandomTriggerProb = 0.05             // chance an unaddressed group message triggers a drain
	DefaultRequestTimeout    = 60 * time.Second // per completion call

	DefaultDBPath = "storage.db"

	DefaultPrompt = "You are a friendly, slightly sarcastic chat companion. Keep things casual."
)

// DefaultMessages are the stock user-visible bot messages.
var DefaultMessages = MessagesConfig{
	Welcome:        "Hi! Mention me in a message to start chatting.",
	NotAuthorized:  "You are not authorized to use this command.",
	HistoryReset:   "Memory cleared.",
	PromptUpdated:  "Persona updated.",
	ProvideArg:     "Please provide an argument for this command.",
	ReasoningOn:    "Reasoning output enabled.",
	ReasoningOff:   "Reasoning output disabled.",
	PresetSwitched: "Switched to API preset: %s",
	PresetOff:      "Chat replies disabled for this conversation.",
	PresetList:     "Current API preset: %s\nAvailable presets:\n%s",
	FailureNotice:  "The service is temporarily unavailable, please try again later.",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", true)

	v.SetDefault("bot.nicknames", []string{"bot"})
	v.SetDefault("bot.default_preset", "default")
	v.SetDefault("bot.default_prompt", DefaultPrompt)
	v.SetDefault("bot.history_size", DefaultHistorySize)
	v.SetDefault("bot.pending_size", DefaultPendingSize)
	v.SetDefault("bot.history_window", DefaultHistoryWindow)
	v.SetDefault("bot.segment_delay", DefaultSegmentDelay)
	v.SetDefault("bot.random_trigger_prob", DefaultRandomTriggerProb)
	v.SetDefault("bot.request_timeout", DefaultRequestTimeout)

	v.SetDefault("bot.messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("bot.messages.not_authorized", DefaultMessages.NotAuthorized)
	v.SetDefault("bot.messages.history_reset", DefaultMessages.HistoryReset)
	v.SetDefault("bot.messages.prompt_updated", DefaultMessages.PromptUpdated)
	v.SetDefault("bot.messages.provide_arg", DefaultMessages.ProvideArg)
	v.SetDefault("bot.messages.reasoning_on", DefaultMessages.ReasoningOn)
	v.SetDefault("bot.messages.reasoning_off", DefaultMessages.ReasoningOff)
	v.SetDefault("bot.messages.preset_switched", DefaultMessages.PresetSwitched)
	v.SetDefault("bot.messages.preset_off", DefaultMessages.PresetOff)
	v.SetDefault("bot.messages.preset_list", DefaultMessages.PresetList)
	v.SetDefault("bot.messages.failure_notice", DefaultMessages.FailureNotice)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("scheduler.tasks.state_snapshot.enabled", true)
	v.SetDefault("scheduler.tasks.state_snapshot.schedule", "*/5 * * * *")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 4 * * *")
}
