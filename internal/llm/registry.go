package llm

import (
	"errors"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/pkg/api"
)

// ErrProviderNotFound is returned for unknown or disabled provider ids.
var ErrProviderNotFound = errors.New("provider not found or not enabled")

// ProviderSource yields the current provider declarations in order.
type ProviderSource interface {
	Providers() []config.ProviderConfig
}

// StaticSource is a fixed provider list.
type StaticSource []config.ProviderConfig

func (s StaticSource) Providers() []config.ProviderConfig {
	return append([]config.ProviderConfig(nil), s...)
}

// Registry answers which providers exist and are enabled. It reads the
// source on every query and never caches.
type Registry struct {
	source ProviderSource
}

func NewRegistry(source ProviderSource) *Registry {
	return &Registry{source: source}
}

// all returns the declared providers with duplicate ids removed, keeping the
// first declaration.
func (r *Registry) all() []config.ProviderConfig {
	declared := r.source.Providers()
	seen := make(map[string]struct{}, len(declared))
	out := make([]config.ProviderConfig, 0, len(declared))
	for _, p := range declared {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		if p.Name == "" {
			p.Name = p.ID
		}
		p.Method = method(p)
		out = append(out, p)
	}
	return out
}

// ListEnabled returns enabled providers in declaration order.
func (r *Registry) ListEnabled() []config.ProviderConfig {
	var out []config.ProviderConfig
	for _, p := range r.all() {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Resolve finds an enabled provider by id.
func (r *Registry) Resolve(id string) (config.ProviderConfig, error) {
	for _, p := range r.all() {
		if p.ID == id {
			if !p.Enabled {
				break
			}
			return p, nil
		}
	}
	return config.ProviderConfig{}, ErrProviderNotFound
}

// Summaries projects enabled providers for external listing.
func (r *Registry) Summaries() []api.AIModel {
	enabled := r.ListEnabled()
	out := make([]api.AIModel, len(enabled))
	for i, p := range enabled {
		out[i] = api.AIModel{ID: p.ID, Name: p.Name, Enabled: p.Enabled}
	}
	return out
}
