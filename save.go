package autosettings

import (
	"context"

	"github.com/goliatone/go-autosettings/internal/layering"
	"github.com/goliatone/go-autosettings/pkg/activity"
	"github.com/goliatone/go-autosettings/pkg/dom"
	"github.com/goliatone/go-autosettings/pkg/notify"
	"github.com/goliatone/go-autosettings/pkg/store"
	"github.com/goliatone/go-autosettings/pkg/trigger"
)

// eventTarget returns the control an event belongs to. A single radio input
// resolves to its radio group, with the input returned as the selection.
func eventTarget(ev dom.Event) (el, selected dom.Element) {
	el = ev.Target
	if dom.IsRadio(el) {
		if group := dom.Closest(el, dom.KindRadioGroup); group != nil {
			return group, el
		}
	}
	return el, nil
}

// SaveOption persists the control ev came from. Controls locked by policy are
// ignored. Save triggers run first and their results are handed to the save
// overrides; unless an override handles the save, the value is written to
// the synced store. Override and store failures are shown to the user.
func (s *Settings) SaveOption(ctx context.Context, ev dom.Event) error {
	el, selected := eventTarget(ev)
	if el == nil {
		return optionError("save", "", ErrUnknownOption)
	}
	if dom.HasAttr(el, dom.AttrDisabled) {
		s.logger.Warn("control is disabled, ignoring save", "option", optionNameOf(el))
		return nil
	}

	option, value, err := dom.ReadWithGroup(s.doc, el, selected, s.engine, true)
	if err != nil {
		return optionError("save", optionNameOf(el), err)
	}

	triggerValues, err := s.triggers.Dispatch(ctx, trigger.KindSave, trigger.Call{Option: option, Value: value, Event: ev})
	if err != nil {
		return optionError("save", option, err)
	}

	outcome, err := s.triggers.DispatchOverride(ctx, trigger.SlotSave, trigger.OverrideContext{
		Option:            option,
		Value:             value,
		HasValue:          true,
		Element:           el,
		Event:             ev,
		SaveTriggerValues: triggerValues,
	})
	if err != nil {
		return s.saveFailed(option, err)
	}
	if !outcome.Proceed() {
		s.logger.Debug("save handled by override", "option", option)
		return nil
	}

	if err := s.synced.Set(ctx, map[string]any{outcome.Option: outcome.Value}); err != nil {
		return s.saveFailed(outcome.Option, err)
	}
	if group, grouped := dom.GroupOf(el); grouped && group == outcome.Option {
		if composite, ok := layering.Composite(outcome.Value); ok {
			s.engine.Remember(group, composite)
		}
	}
	s.logger.Info("option saved", "option", outcome.Option)
	s.emit(ctx, activity.OptionSaved(s.eventInput(activity.SettingsEventInput{
		Option:   outcome.Option,
		Value:    outcome.Value,
		HasValue: true,
	})))
	return nil
}

func (s *Settings) saveFailed(option string, err error) error {
	s.logger.Error("could not save option", "option", option, "error", err)
	s.notifier.ShowError(notify.MsgCouldNotSaveOption, true)
	return optionError("save", option, err)
}

// SetOption applies value to the control bound to option, as if it had been
// loaded from storage, and saves it. For a grouped option every member of the
// group is re-applied from the remembered group merged with value.
func (s *Settings) SetOption(ctx context.Context, option string, value any, group string) error {
	el := dom.Lookup(s.doc, option)
	if el == nil {
		return optionError("set", option, ErrUnknownOption)
	}
	if dom.HasAttr(el, dom.AttrDisabled) {
		return optionError("set", option, ErrOptionManaged)
	}
	if group == "" {
		group, _ = dom.GroupOf(el)
	}

	if group == "" {
		if err := s.apply(ctx, el, option, "", map[string]any{option: value}); err != nil {
			return optionError("set", option, err)
		}
	} else {
		composite := s.engine.Group(group)
		composite[option] = value
		results := map[string]any{group: composite}
		for _, member := range dom.ElementsInGroup(s.doc, group) {
			if err := s.apply(ctx, member, optionNameOf(member), group, results); err != nil {
				return optionError("set", option, err)
			}
		}
	}

	return s.SaveOption(ctx, dom.Event{Type: dom.EventChange, Target: el, CurrentTarget: el})
}

// GetOption returns the effective value of option: policy first, then the
// synced store, then the default provider. ok is false when none of them
// holds a value and the page default applies.
func (s *Settings) GetOption(ctx context.Context, option string) (value any, ok bool, err error) {
	var group string
	if el := dom.Lookup(s.doc, option); el != nil {
		group, _ = dom.GroupOf(el)
	}
	key := storageKey(option, group)

	results, err := s.managed.Get(ctx, key)
	if err != nil {
		s.logger.Warn("could not get managed options", "option", option, "error", err)
		results = nil
	}
	if store.IsEmpty(results) {
		if results, err = s.synced.Get(ctx, key); err != nil {
			return nil, false, optionError("get", option, err)
		}
	}

	res, err := s.engine.Resolve(ctx, option, group, results)
	if err != nil {
		return nil, false, optionError("get", option, err)
	}
	return res.Value, res.Found(), nil
}
