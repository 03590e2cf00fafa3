// Package resolve decides the effective value of an option from a bag of
// fetched results, the default provider and, as a last resort, the default
// authored in the page markup.
package resolve

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/goliatone/go-autosettings/internal/layering"
)

// Source identifies where a resolved value came from.
type Source int

const (
	// SourceHTML means no value was found and the control keeps its markup default.
	SourceHTML Source = iota
	SourceResult
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceResult:
		return "result"
	case SourceDefault:
		return "default"
	default:
		return "html"
	}
}

// Resolution is the outcome of resolving one option.
type Resolution struct {
	Option string
	Group  string
	Value  any
	Source Source
}

// Found reports whether a value should be applied to the control.
func (r Resolution) Found() bool {
	return r.Source != SourceHTML
}

// Defaults is the subset of the default registry the engine consults.
type Defaults interface {
	Get(ctx context.Context, option string) (any, bool, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for resolution details.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine resolves option values and keeps the remembered-group cache for the
// current page load. It is safe for concurrent use.
type Engine struct {
	defaults Defaults
	logger   *slog.Logger

	mu         sync.RWMutex
	remembered map[string]map[string]any
}

// NewEngine builds an Engine backed by defaults.
func NewEngine(defaults Defaults, opts ...Option) *Engine {
	e := &Engine{
		defaults:   defaults,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		remembered: map[string]map[string]any{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Reset forgets every remembered group.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.remembered = map[string]map[string]any{}
	e.mu.Unlock()
}

// Group returns a copy of the remembered composite for name, or an empty map.
func (e *Engine) Group(name string) map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	composite, ok := e.remembered[name]
	if !ok {
		return map[string]any{}
	}
	return layering.CloneMap(composite)
}

// Remembered reports whether a composite is cached for name.
func (e *Engine) Remembered(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.remembered[name]
	return ok
}

// Forget drops the cached composite of name.
func (e *Engine) Forget(name string) {
	e.mu.Lock()
	delete(e.remembered, name)
	e.mu.Unlock()
}

// Remember stores a copy of composite as the last-known state of group name.
func (e *Engine) Remember(name string, composite map[string]any) {
	if name == "" {
		return
	}
	snapshot := layering.CloneMap(composite)
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	e.mu.Lock()
	e.remembered[name] = snapshot
	e.mu.Unlock()
}

// Resolve picks the effective value for option. The order is fixed: an entry
// in results wins, then the default provider, then the markup default. For a
// grouped option the default is looked up by group name and indexed by option.
func (e *Engine) Resolve(ctx context.Context, option, group string, results map[string]any) (Resolution, error) {
	res := Resolution{Option: option, Group: group}

	if value, ok := lookupResult(option, group, results); ok {
		if group != "" {
			if composite, isComposite := layering.Composite(results[group]); isComposite {
				e.Remember(group, composite)
			}
		}
		res.Value, res.Source = layering.Clone(value), SourceResult
		e.logger.Debug("option resolved from results", "option", option, "group", group)
		return res, nil
	}

	if e.defaults == nil {
		return res, nil
	}
	value, ok, err := e.lookupDefault(ctx, option, group)
	if err != nil {
		return res, err
	}
	if !ok {
		e.logger.Debug("option keeps markup default", "option", option, "group", group)
		return res, nil
	}
	res.Value, res.Source = value, SourceDefault
	e.logger.Debug("option resolved from defaults", "option", option, "group", group)
	return res, nil
}

// lookupResult reads option from results. A key that is present with a nil
// value yields a present null.
func lookupResult(option, group string, results map[string]any) (any, bool) {
	if results == nil {
		return nil, false
	}
	if group == "" {
		value, ok := results[option]
		return value, ok
	}
	composite, ok := layering.Composite(results[group])
	if !ok {
		return nil, false
	}
	value, ok := composite[option]
	return value, ok
}

func (e *Engine) lookupDefault(ctx context.Context, option, group string) (any, bool, error) {
	if group == "" {
		return e.defaults.Get(ctx, option)
	}
	value, ok, err := e.defaults.Get(ctx, group)
	if err != nil || !ok {
		return nil, false, err
	}
	composite, isComposite := layering.Composite(value)
	if !isComposite {
		return nil, false, nil
	}
	member, ok := composite[option]
	return member, ok, nil
}
