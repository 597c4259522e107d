// Package config provides configuration loading and validation: defaults,
// a YAML config file, and BOT_* environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Presets   []PresetConfig  `mapstructure:"presets" validate:"required,min=1,dive"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds transport credentials.
type TelegramConfig struct {
	Token   string `mapstructure:"token"    validate:"required"`
	AdminID int64  `mapstructure:"admin_id" validate:"required,gt=0"`
}

// BotConfig tunes the conversation engine and the trigger policy.
type BotConfig struct {
	Nicknames         []string      `mapstructure:"nicknames"           validate:"required,min=1,dive,required"`
	DefaultPreset     string        `mapstructure:"default_preset"      validate:"required"`
	DefaultPrompt     string        `mapstructure:"default_prompt"      validate:"required"`
	HistorySize       int           `mapstructure:"history_size"        validate:"min=1"`
	PendingSize       int           `mapstructure:"pending_size"        validate:"min=1"`
	HistoryWindow     int           `mapstructure:"history_window"      validate:"min=1"`
	SegmentDelay      time.Duration `mapstructure:"segment_delay"       validate:"min=0"`
	RandomTriggerProb float64       `mapstructure:"random_trigger_prob" validate:"min=0,max=1"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"     validate:"min=1s,max=10m"`

	Messages MessagesConfig `mapstructure:"messages"`
}

// MessagesConfig holds the user-visible bot messages.
type MessagesConfig struct {
	Welcome        string `mapstructure:"welcome"`
	NotAuthorized  string `mapstructure:"not_authorized"`
	HistoryReset   string `mapstructure:"history_reset"`
	PromptUpdated  string `mapstructure:"prompt_updated"`
	ProvideArg     string `mapstructure:"provide_arg"`
	ReasoningOn    string `mapstructure:"reasoning_on"`
	ReasoningOff   string `mapstructure:"reasoning_off"`
	PresetSwitched string `mapstructure:"preset_switched"` // fmt: preset name
	PresetOff      string `mapstructure:"preset_off"`
	PresetList     string `mapstructure:"preset_list"` // fmt: current, list
	FailureNotice  string `mapstructure:"failure_notice"`
}

// PresetConfig is one named API preset.
type PresetConfig struct {
	Name        string  `mapstructure:"name"        validate:"required"`
	APIBase     string  `mapstructure:"api_base"    validate:"required,url"`
	APIKey      string  `mapstructure:"api_key"     validate:"required"`
	ModelName   string  `mapstructure:"model_name"  validate:"required"`
	MaxTokens   int     `mapstructure:"max_tokens"  validate:"min=1"`
	Temperature float32 `mapstructure:"temperature" validate:"min=0,max=2"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig enables and schedules background tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig is one scheduled task entry.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig reads configuration from the given YAML file (optional; absent
// file falls back to defaults), applies BOT_* environment overrides, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		slog.Info("configuration file not found, using defaults", "path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks struct tags plus the cross-field constraints the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Bot.HistoryWindow > c.Bot.HistorySize {
		return fmt.Errorf("bot.history_window (%d) must not exceed bot.history_size (%d)",
			c.Bot.HistoryWindow, c.Bot.HistorySize)
	}

	if !c.HasPreset(c.Bot.DefaultPreset) {
		return fmt.Errorf("bot.default_preset %q is not a configured preset", c.Bot.DefaultPreset)
	}

	return nil
}

// HasPreset reports whether a preset with the given name is configured.
func (c *Config) HasPreset(name string) bool {
	for _, p := range c.Presets {
		if p.Name == name {
			return true
		}
	}
	return false
}
