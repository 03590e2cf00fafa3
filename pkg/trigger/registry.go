// Package trigger keeps the ordered callback lists run around loading and
// saving options, and the override chains that can take over load or save
// handling for a single option.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-autosettings/pkg/dom"
)

// ErrInvalidTriggerEvent is returned when an event type has no trigger kind.
var ErrInvalidTriggerEvent = errors.New("trigger: invalid event type attached")

// Kind names a plain trigger list.
type Kind int

const (
	KindSave Kind = iota
	KindChange
	KindUpdate
	KindBeforeLoad
	KindAfterLoad
)

func (k Kind) String() string {
	switch k {
	case KindSave:
		return "save"
	case KindChange:
		return "change"
	case KindUpdate:
		return "update"
	case KindBeforeLoad:
		return "before-load"
	case KindAfterLoad:
		return "after-load"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Call carries the arguments handed to a trigger.
type Call struct {
	Option string
	Value  any
	Event  dom.Event
}

// Func is a trigger callback. Its return value is collected by Dispatch.
type Func func(ctx context.Context, call Call) (any, error)

// ValueLookup fetches the current value of an option, used when save
// triggers are replayed after a load.
type ValueLookup func(ctx context.Context, option string) (any, error)

type registration struct {
	option string
	fn     Func
}

// Option configures a Registry.
type Option func(*Registry)

// WithValueLookup sets the lookup used by ReplaySavesAfterLoad.
func WithValueLookup(lookup ValueLookup) Option {
	return func(r *Registry) {
		r.lookup = lookup
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry holds trigger and override registrations. It is safe for
// concurrent use; registrations are never removed individually.
type Registry struct {
	mu        sync.RWMutex
	lists     map[Kind][]registration
	overrides map[Slot][]overrideRegistration
	lookup    ValueLookup
	logger    *slog.Logger
}

// New builds an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		lists:     map[Kind][]registration{},
		overrides: map[Slot][]overrideRegistration{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// SetValueLookup replaces the lookup used by ReplaySavesAfterLoad.
func (r *Registry) SetValueLookup(lookup ValueLookup) {
	r.mu.Lock()
	r.lookup = lookup
	r.mu.Unlock()
}

// Register appends fn to the kind list. An empty option matches every call.
func (r *Registry) Register(kind Kind, option string, fn Func) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.lists[kind] = append(r.lists[kind], registration{option: option, fn: fn})
	r.mu.Unlock()
}

// RegisterSave runs fn whenever option has been read for saving.
func (r *Registry) RegisterSave(option string, fn Func) { r.Register(KindSave, option, fn) }

// RegisterUpdate runs fn on input events of option.
func (r *Registry) RegisterUpdate(option string, fn Func) { r.Register(KindUpdate, option, fn) }

// RegisterChange runs fn on change events of option.
func (r *Registry) RegisterChange(option string, fn Func) { r.Register(KindChange, option, fn) }

// RegisterBeforeLoad runs fn before every full load.
func (r *Registry) RegisterBeforeLoad(fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	r.Register(KindBeforeLoad, "", func(ctx context.Context, _ Call) (any, error) {
		return nil, fn(ctx)
	})
}

// RegisterAfterLoad runs fn after every full load.
func (r *Registry) RegisterAfterLoad(fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	r.Register(KindAfterLoad, "", func(ctx context.Context, _ Call) (any, error) {
		return nil, fn(ctx)
	})
}

// ReplaySavesAfterLoad re-runs every save trigger once loading completes,
// each with its option's current value. Wildcard save triggers have no
// option to look up and are not replayed.
func (r *Registry) ReplaySavesAfterLoad() {
	r.Register(KindAfterLoad, "", func(ctx context.Context, _ Call) (any, error) {
		return nil, r.replaySaves(ctx)
	})
}

// UnregisterAll clears every trigger list and override chain.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	r.lists = map[Kind][]registration{}
	r.overrides = map[Slot][]overrideRegistration{}
	r.mu.Unlock()
}

// Len returns the number of registrations of kind.
func (r *Registry) Len(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lists[kind])
}

func (r *Registry) matching(kind Kind, option string) []registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []registration
	for _, reg := range r.lists[kind] {
		if option == "" || reg.option == "" || reg.option == option {
			out = append(out, reg)
		}
	}
	return out
}

// Dispatch runs every matching registration of kind concurrently and waits for
// all of them. Results are returned in registration order together with the
// first failure.
func (r *Registry) Dispatch(ctx context.Context, kind Kind, call Call) ([]any, error) {
	regs := r.matching(kind, call.Option)
	if len(regs) == 0 {
		return nil, nil
	}
	r.logger.Debug("dispatch triggers", "kind", kind.String(), "option", call.Option, "count", len(regs))

	results := make([]any, len(regs))
	g, gctx := errgroup.WithContext(ctx)
	for i, reg := range regs {
		g.Go(func() error {
			value, err := reg.fn(gctx, call)
			if err != nil {
				return err
			}
			results[i] = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("trigger: %s triggers for %q: %w", kind, call.Option, err)
	}
	return results, nil
}

// DispatchEvent maps a UI event onto the update or change list.
func (r *Registry) DispatchEvent(ctx context.Context, event dom.Event, option string, value any) ([]any, error) {
	var kind Kind
	switch event.Type {
	case dom.EventInput:
		kind = KindUpdate
	case dom.EventChange:
		kind = KindChange
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTriggerEvent, event.Type)
	}
	return r.Dispatch(ctx, kind, Call{Option: option, Value: value, Event: event})
}

func (r *Registry) replaySaves(ctx context.Context) error {
	r.mu.RLock()
	var regs []registration
	for _, reg := range r.lists[KindSave] {
		if reg.option != "" {
			regs = append(regs, reg)
		}
	}
	lookup := r.lookup
	r.mu.RUnlock()

	if len(regs) == 0 {
		return nil
	}
	if lookup == nil {
		return fmt.Errorf("trigger: replay save triggers: no value lookup configured")
	}
	r.logger.Debug("replay save triggers", "count", len(regs))

	g, gctx := errgroup.WithContext(ctx)
	for _, reg := range regs {
		g.Go(func() error {
			value, err := lookup(gctx, reg.option)
			if err != nil {
				return fmt.Errorf("trigger: replay %q: %w", reg.option, err)
			}
			_, err = reg.fn(gctx, Call{Option: reg.option, Value: value})
			return err
		})
	}
	return g.Wait()
}
