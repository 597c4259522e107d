// Package preset resolves named API presets: endpoint, credentials, model
// and sampling parameters for the completion client.
package preset

import (
	"errors"
	"log/slog"
)

// Preset is a named bundle of completion API parameters.
type Preset struct {
	Name        string
	APIBase     string
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// Registry holds the configured presets in declaration order.
type Registry struct {
	presets []Preset
	logger  *slog.Logger
}

// NewRegistry creates a registry from the configured presets. At least one
// preset is required; the first one doubles as the fallback.
func NewRegistry(presets []Preset, logger *slog.Logger) (*Registry, error) {
	if len(presets) == 0 {
		return nil, errors.New("at least one API preset must be configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		presets: presets,
		logger:  logger.With("component", "preset_registry"),
	}, nil
}

// Resolve returns the preset with the given name. An unknown name resolves
// to the first configured preset. Conversations created before a preset was
// removed from the config keep working against the fallback, so this is a
// silent downgrade rather than an error.
func (r *Registry) Resolve(name string) Preset {
	for _, p := range r.presets {
		if p.Name == name {
			return p
		}
	}
	r.logger.Warn("unknown preset, falling back to first configured",
		"requested", name, "fallback", r.presets[0].Name)
	return r.presets[0]
}

// Has reports whether a preset with the given name is configured.
func (r *Registry) Has(name string) bool {
	for _, p := range r.presets {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Names returns the configured preset names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for _, p := range r.presets {
		names = append(names, p.Name)
	}
	return names
}
