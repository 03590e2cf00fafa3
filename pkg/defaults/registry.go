// Package defaults holds the injectable default-value provider consulted when
// nothing is persisted for an option.
//
// A Registry starts out not ready. Hosts must call Set, either with a Provider
// or with nil to rely solely on the defaults authored in the page markup,
// before any resolution is attempted.
package defaults

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-autosettings/internal/codec"
	"github.com/goliatone/go-autosettings/internal/layering"
)

// ErrNotReady is returned when defaults are consulted before a provider has
// been configured.
var ErrNotReady = errors.New("defaults: default option provider not configured")

// Provider supplies the default value for a single option or option group.
// ok is false when the provider has no default for option.
type Provider interface {
	Default(ctx context.Context, option string) (value any, ok bool, err error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, option string) (any, bool, error)

// Default implements Provider.
func (f ProviderFunc) Default(ctx context.Context, option string) (any, bool, error) {
	if f == nil {
		return nil, false, nil
	}
	return f(ctx, option)
}

type staticProvider map[string]any

// Static returns a Provider answering from a fixed map. Values are cloned on
// every lookup so callers cannot mutate the table.
func Static(values map[string]any) Provider {
	return staticProvider(layering.CloneMap(values))
}

func (p staticProvider) Default(_ context.Context, option string) (any, bool, error) {
	value, ok := p[option]
	if !ok {
		return nil, false, nil
	}
	return layering.Clone(value), true, nil
}

// LoadStatic decodes a json, yaml or toml document into a Static provider.
func LoadStatic(path string) (Provider, error) {
	values, err := codec.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("defaults: load %s: %w", path, err)
	}
	return Static(values), nil
}

// Registry guards the active Provider.
type Registry struct {
	mu       sync.RWMutex
	provider Provider
	ready    bool
}

// NewRegistry returns a Registry in the not-ready state.
func NewRegistry() *Registry {
	return &Registry{}
}

// Set installs provider. A nil provider explicitly disables default lookup
// while still marking the registry ready.
func (r *Registry) Set(provider Provider) {
	r.mu.Lock()
	r.provider = provider
	r.ready = true
	r.mu.Unlock()
}

// Unset returns the registry to the not-ready state.
func (r *Registry) Unset() {
	r.mu.Lock()
	r.provider = nil
	r.ready = false
	r.mu.Unlock()
}

// Ready reports whether Set has been called.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// Disabled reports whether defaults were explicitly turned off.
func (r *Registry) Disabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready && r.provider == nil
}

// Verify returns ErrNotReady unless a provider decision has been made.
func (r *Registry) Verify() error {
	if !r.Ready() {
		return ErrNotReady
	}
	return nil
}

// Get returns the default for option. Lookups are never batched.
func (r *Registry) Get(ctx context.Context, option string) (any, bool, error) {
	r.mu.RLock()
	provider, ready := r.provider, r.ready
	r.mu.RUnlock()

	if !ready {
		return nil, false, ErrNotReady
	}
	if provider == nil {
		return nil, false, nil
	}
	value, ok, err := provider.Default(ctx, option)
	if err != nil {
		return nil, false, fmt.Errorf("defaults: option %q: %w", option, err)
	}
	return value, ok, nil
}
