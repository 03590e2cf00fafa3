package autosettings

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-autosettings/pkg/activity"
	"github.com/goliatone/go-autosettings/pkg/dom"
	"github.com/goliatone/go-autosettings/pkg/notify"
	"github.com/goliatone/go-autosettings/pkg/store"
	"github.com/goliatone/go-autosettings/pkg/trigger"
)

// LoadAll runs one full load cycle: forget remembered groups, run the
// before-load triggers, load every .setting control concurrently and, once all
// of them finished, run the after-load triggers.
func (s *Settings) LoadAll(ctx context.Context) error {
	s.engine.Reset()

	if _, err := s.triggers.Dispatch(ctx, trigger.KindBeforeLoad, trigger.Call{}); err != nil {
		return optionError("load", "", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, el := range s.doc.ByClass(dom.ClassSetting) {
		g.Go(func() error {
			return s.LoadOption(gctx, el, "")
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if _, err := s.triggers.Dispatch(ctx, trigger.KindAfterLoad, trigger.Call{}); err != nil {
		return optionError("load", "", err)
	}
	return nil
}

// LoadOptionByName loads the control bound to option.
func (s *Settings) LoadOptionByName(ctx context.Context, option string) error {
	el := dom.Lookup(s.doc, option)
	if el == nil {
		return optionError("load", option, ErrUnknownOption)
	}
	return s.LoadOption(ctx, el, option)
}

// LoadOption loads el. An empty option is taken from the control. Policy is
// consulted first; only when it holds nothing for the option, or cannot be
// read, is the synced store asked.
func (s *Settings) LoadOption(ctx context.Context, el dom.Element, option string) error {
	if el == nil {
		return optionError("load", option, ErrUnknownOption)
	}
	if option == "" {
		option = optionNameOf(el)
	}
	group, _ := dom.GroupOf(el)
	key := storageKey(option, group)

	managed, err := s.managed.Get(ctx, key)
	switch {
	case err != nil:
		s.logger.Warn("could not get managed options", "option", option, "key", key, "error", err)
	case store.IsEmpty(managed):
		s.logger.Debug("no managed value", "option", option, "key", key)
	default:
		s.logger.Info("managed config found", "option", option, "key", key)
		s.lockManaged(ctx, el, option, group)
		return optionError("load", option, s.apply(ctx, el, option, group, managed))
	}

	synced, err := s.synced.Get(ctx, key)
	if err != nil {
		return optionError("load", option, err)
	}
	return optionError("load", option, s.apply(ctx, el, option, group, synced))
}

func (s *Settings) lockManaged(ctx context.Context, el dom.Element, option, group string) {
	s.managedNotice.Do(func() {
		s.notifier.ShowInfo(notify.MsgSomeSettingsAreManaged, false)
	})
	el.SetAttr(dom.AttrDisabled, "")
	el.SetAttr(dom.AttrTitle, s.translator.Translate(notify.MsgOptionIsDisabledBecauseManaged))
	s.emit(ctx, activity.OptionManaged(s.eventInput(activity.SettingsEventInput{Option: option, Group: group})))
}

// apply resolves option from results and writes it into el unless a load
// override handled it. When nothing resolves and no override supplies a
// value, the control keeps the default authored in the page.
func (s *Settings) apply(ctx context.Context, el dom.Element, option, group string, results map[string]any) error {
	res, err := s.engine.Resolve(ctx, option, group, results)
	if err != nil {
		return err
	}
	value := res.Value
	if res.Found() {
		value = dom.Coerce(el, value)
	}

	outcome, err := s.triggers.DispatchOverride(ctx, trigger.SlotLoad, trigger.OverrideContext{
		Option:   option,
		Value:    value,
		HasValue: res.Found(),
		Element:  el,
		Results:  results,
	})
	if err != nil {
		return err
	}
	if !outcome.Proceed() || !outcome.HasValue {
		return nil
	}

	target := outcome.Element
	if target == nil {
		target = el
	}
	s.logger.Debug("apply option", "option", outcome.Option, "source", res.Source.String())
	return dom.WriteValue(target, dom.Coerce(target, outcome.Value))
}

// currentValue is the lookup save triggers are replayed with.
func (s *Settings) currentValue(ctx context.Context, option string) (any, error) {
	value, _, err := s.GetOption(ctx, option)
	return value, err
}

func optionNameOf(el dom.Element) string {
	if name := dom.OptionName(el); name != "" {
		return name
	}
	if dom.KindOf(el) == dom.KindRadioGroup {
		return dom.FirstRadioName(el)
	}
	return ""
}

func storageKey(option, group string) string {
	if group != "" {
		return group
	}
	return option
}
