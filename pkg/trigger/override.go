package trigger

import (
	"context"
	"fmt"

	"github.com/goliatone/go-autosettings/pkg/dom"
)

// Slot names an override chain.
type Slot int

const (
	SlotSave Slot = iota
	SlotLoad
)

func (s Slot) String() string {
	if s == SlotLoad {
		return "override-load"
	}
	return "override-save"
}

// OverrideContext is the state handed to an override. Each override in a
// chain sees the state as rewritten by the one before it.
type OverrideContext struct {
	Option string
	Value  any
	// HasValue is false on load when resolution found nothing and the control
	// would keep its markup default.
	HasValue bool
	Element  dom.Element
	Event    dom.Event
	// SaveTriggerValues holds the results of the save triggers that ran
	// before a save override.
	SaveTriggerValues []any
	// Results is the raw result bag a load override resolves from.
	Results map[string]any
}

// Override takes over load or save handling for an option.
type Override func(ctx context.Context, oc OverrideContext) (Result, error)

// Result is returned by an override: either handled, which stops the chain,
// or continue, optionally with replacement fields.
type Result struct {
	proceed bool
	patch   patch
}

type patch struct {
	option     *string
	value      any
	hasValue   bool
	element    dom.Element
	hasElement bool
}

// Patch replaces one field of the running override state.
type Patch func(*patch)

// WithOption replaces the option name.
func WithOption(option string) Patch {
	return func(p *patch) { p.option = &option }
}

// WithValue replaces the value. A nil value is a present null.
func WithValue(value any) Patch {
	return func(p *patch) {
		p.value = value
		p.hasValue = true
	}
}

// WithElement replaces the target element.
func WithElement(el dom.Element) Patch {
	return func(p *patch) {
		p.element = el
		p.hasElement = true
	}
}

// Handled reports that the override fully dealt with the option.
func Handled() Result { return Result{} }

// Continue asks for default handling, with the given fields replaced.
func Continue(patches ...Patch) Result {
	res := Result{proceed: true}
	for _, p := range patches {
		if p != nil {
			p(&res.patch)
		}
	}
	return res
}

// Continues reports whether default handling should go on.
func (r Result) Continues() bool { return r.proceed }

func (p patch) apply(oc *OverrideContext) {
	if p.option != nil {
		oc.Option = *p.option
	}
	if p.hasValue {
		oc.Value = p.value
		oc.HasValue = true
	}
	if p.hasElement {
		oc.Element = p.element
	}
}

// Outcome summarises an override chain.
type Outcome struct {
	// Executed is false when no override was registered for the option.
	Executed bool
	Handled  bool
	Option   string
	Value    any
	HasValue bool
	Element  dom.Element
}

// Proceed reports whether the caller should run its own handling.
func (o Outcome) Proceed() bool {
	return !o.Executed || !o.Handled
}

type overrideRegistration struct {
	option string
	fn     Override
}

// AddOverride appends fn to the slot chain of option. An empty option
// overrides every option.
func (r *Registry) AddOverride(slot Slot, option string, fn Override) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.overrides[slot] = append(r.overrides[slot], overrideRegistration{option: option, fn: fn})
	r.mu.Unlock()
}

// AddSaveOverride registers a save override for option.
func (r *Registry) AddSaveOverride(option string, fn Override) { r.AddOverride(SlotSave, option, fn) }

// AddLoadOverride registers a load override for option.
func (r *Registry) AddLoadOverride(option string, fn Override) { r.AddOverride(SlotLoad, option, fn) }

// DispatchOverride runs the overrides registered for oc.Option one after the
// other in registration order.
func (r *Registry) DispatchOverride(ctx context.Context, slot Slot, oc OverrideContext) (Outcome, error) {
	r.mu.RLock()
	var chain []Override
	for _, reg := range r.overrides[slot] {
		if reg.option == "" || reg.option == oc.Option {
			chain = append(chain, reg.fn)
		}
	}
	r.mu.RUnlock()

	outcome := Outcome{Option: oc.Option, Value: oc.Value, HasValue: oc.HasValue, Element: oc.Element}
	if len(chain) == 0 {
		return outcome, nil
	}
	r.logger.Debug("dispatch overrides", "slot", slot.String(), "option", oc.Option, "count", len(chain))

	outcome.Executed = true
	state := oc
	for i, fn := range chain {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		res, err := fn(ctx, state)
		if err != nil {
			return outcome, fmt.Errorf("trigger: %s %d for %q: %w", slot, i, oc.Option, err)
		}
		if !res.proceed {
			outcome.Handled = true
			break
		}
		res.patch.apply(&state)
	}
	outcome.Option, outcome.Value, outcome.HasValue, outcome.Element = state.Option, state.Value, state.HasValue, state.Element
	return outcome, nil
}
