package defaults

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"sync"

	"github.com/goliatone/go-autosettings/internal/codec"
	"github.com/goliatone/go-autosettings/pkg/dom"
)

// ErrInvalidHelper is returned when a helper cannot be registered.
var ErrInvalidHelper = errors.New("defaults: invalid rule helper")

// Helper is a function default rules can call by name.
type Helper func(args ...any) (any, error)

var helperName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Helpers is a set of rule helpers keyed by their exact name. A helper name
// cannot shadow the option, now, metadata or call bindings every rule sees.
type Helpers struct {
	mu    sync.RWMutex
	funcs map[string]Helper
}

// NewHelpers returns an empty helper set.
func NewHelpers() *Helpers {
	return &Helpers{funcs: make(map[string]Helper)}
}

// BuiltinHelpers returns the helpers settings rules commonly need:
//
//	number(v)          converts control text the way the page does
//	clamp(v, lo, hi)   bounds a numeric default
//	coalesce(a, b...)  first argument that is neither null nor ""
func BuiltinHelpers() *Helpers {
	h := NewHelpers()
	h.funcs["number"] = numberHelper
	h.funcs["clamp"] = clampHelper
	h.funcs["coalesce"] = coalesceHelper
	return h
}

// Register adds fn under name.
func (h *Helpers) Register(name string, fn Helper) error {
	switch {
	case fn == nil:
		return fmt.Errorf("%w: %q has no function", ErrInvalidHelper, name)
	case !helperName.MatchString(name):
		return fmt.Errorf("%w: %q is not an identifier", ErrInvalidHelper, name)
	}
	switch name {
	case "option", "now", "metadata", "call":
		return fmt.Errorf("%w: %q is a rule binding", ErrInvalidHelper, name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.funcs == nil {
		h.funcs = make(map[string]Helper)
	}
	if _, exists := h.funcs[name]; exists {
		return fmt.Errorf("%w: %q already registered", ErrInvalidHelper, name)
	}
	h.funcs[name] = fn
	return nil
}

// snapshot copies the set so later registrations do not reach evaluators
// that were already built.
func (h *Helpers) snapshot() *Helpers {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := &Helpers{funcs: make(map[string]Helper, len(h.funcs))}
	for name, fn := range h.funcs {
		out.funcs[name] = fn
	}
	return out
}

func (h *Helpers) call(name string, args ...any) (any, error) {
	if h == nil {
		return nil, fmt.Errorf("defaults: no helper %q", name)
	}
	h.mu.RLock()
	fn := h.funcs[name]
	h.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("defaults: no helper %q", name)
	}
	value, err := fn(args...)
	if err != nil {
		return nil, fmt.Errorf("defaults: helper %s: %w", name, err)
	}
	return value, nil
}

func (h *Helpers) names() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.funcs))
	for name := range h.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toNumber(value any) float64 {
	switch typed := codec.Normalize(value).(type) {
	case float64:
		return typed
	case bool:
		if typed {
			return 1
		}
		return 0
	case string:
		return dom.ParseNumber(typed)
	case nil:
		return 0
	default:
		return math.NaN()
	}
}

func numberHelper(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expects 1 argument, got %d", len(args))
	}
	return toNumber(args[0]), nil
}

func clampHelper(args ...any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("expects 3 arguments, got %d", len(args))
	}
	value, lo, hi := toNumber(args[0]), toNumber(args[1]), toNumber(args[2])
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return nil, fmt.Errorf("invalid bounds %v..%v", args[1], args[2])
	}
	if math.IsNaN(value) {
		return lo, nil
	}
	return math.Min(math.Max(value, lo), hi), nil
}

func coalesceHelper(args ...any) (any, error) {
	for _, arg := range args {
		if arg == nil || arg == "" {
			continue
		}
		return arg, nil
	}
	return nil, nil
}
