package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
telegram:
  token: "123456:TEST-TOKEN"
  admin_id: 1001

bot:
  nicknames: ["muri", "bot"]
  default_preset: "default"

presets:
  - name: "default"
    api_base: "https://api.example.com/v1"
    api_key: "sk-test"
    model_name: "model-a"
    max_tokens: 1024
    temperature: 0.7
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigValid(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "123456:TEST-TOKEN", cfg.Telegram.Token)
	assert.Equal(t, int64(1001), cfg.Telegram.AdminID)
	assert.Equal(t, []string{"muri", "bot"}, cfg.Bot.Nicknames)
	require.Len(t, cfg.Presets, 1)
	assert.Equal(t, "default", cfg.Presets[0].Name)
	assert.InDelta(t, 0.7, float64(cfg.Presets[0].Temperature), 1e-6)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Logger.Level)
	assert.Equal(t, DefaultHistorySize, cfg.Bot.HistorySize)
	assert.Equal(t, DefaultPendingSize, cfg.Bot.PendingSize)
	assert.Equal(t, 2*time.Second, cfg.Bot.SegmentDelay)
	assert.InDelta(t, DefaultRandomTriggerProb, cfg.Bot.RandomTriggerProb, 1e-9)
	assert.Equal(t, DefaultDBPath, cfg.Database.Path)
	assert.Equal(t, DefaultMessages.FailureNotice, cfg.Bot.Messages.FailureNotice)

	snap, ok := cfg.Scheduler.Tasks["state_snapshot"]
	require.True(t, ok)
	assert.True(t, snap.Enabled)
	assert.Equal(t, "*/5 * * * *", snap.Schedule)
}

func TestLoadConfigMissingFileFailsValidation(t *testing.T) {
	// Defaults alone carry no token and no presets.
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsMissingToken(t *testing.T) {
	yaml := `
telegram:
  admin_id: 1001
presets:
  - name: "default"
    api_base: "https://api.example.com/v1"
    api_key: "sk-test"
    model_name: "model-a"
    max_tokens: 1024
`
	_, err := LoadConfig(writeConfig(t, yaml))
	assert.Error(t, err)
}

func TestLoadConfigRejectsWindowLargerThanHistory(t *testing.T) {
	yaml := `
telegram:
  token: "123456:TEST-TOKEN"
  admin_id: 1001

bot:
  nicknames: ["muri"]
  default_preset: "default"
  history_size: 5
  history_window: 10

presets:
  - name: "default"
    api_base: "https://api.example.com/v1"
    api_key: "sk-test"
    model_name: "model-a"
    max_tokens: 1024
`
	_, err := LoadConfig(writeConfig(t, yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_window")
}

func TestLoadConfigRejectsUnknownDefaultPreset(t *testing.T) {
	yaml := `
telegram:
  token: "123456:TEST-TOKEN"
  admin_id: 1001

bot:
  nicknames: ["muri"]
  default_preset: "ghost"

presets:
  - name: "default"
    api_base: "https://api.example.com/v1"
    api_key: "sk-test"
    model_name: "model-a"
    max_tokens: 1024
`
	_, err := LoadConfig(writeConfig(t, yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_preset")
}

func TestHasPreset(t *testing.T) {
	cfg := &Config{Presets: []PresetConfig{{Name: "a"}, {Name: "b"}}}
	assert.True(t, cfg.HasPreset("a"))
	assert.False(t, cfg.HasPreset("off"))
}
