package dom

import (
	"fmt"

	"github.com/goliatone/go-autosettings/internal/layering"
)

// GroupSnapshotter exposes the last-known composite value of an option group.
type GroupSnapshotter interface {
	Group(name string) map[string]any
}

// ElementsInGroup returns every control annotated with group.
func ElementsInGroup(doc Document, group string) []Element {
	if doc == nil || group == "" {
		return nil
	}
	return doc.ByGroup(group)
}

// ReadValue extracts the option name and value a control currently holds.
// selected is the radio member that originated the event, or nil.
func ReadValue(el, selected Element) (string, any, error) {
	if el == nil {
		return "", nil, fmt.Errorf("dom: read value: nil element")
	}
	name, value, err := codecFor(el).read(el, selected)
	if err != nil {
		return "", nil, err
	}
	if name == "" && KindOf(el) == KindRadioGroup {
		name = FirstRadioName(el)
	}
	return name, value, nil
}

// ReadWithGroup reads el, and when it belongs to a group and useGroup is set,
// returns the group name with the cached composite overlaid by fresh readings
// of every member currently on the page.
func ReadWithGroup(doc Document, el, selected Element, cache GroupSnapshotter, useGroup bool) (string, any, error) {
	group, grouped := GroupOf(el)
	if !useGroup || !grouped {
		return ReadValue(el, selected)
	}

	composite := map[string]any{}
	if cache != nil {
		if snapshot := cache.Group(group); snapshot != nil {
			composite = layering.CloneMap(snapshot)
		}
	}

	members := ElementsInGroup(doc, group)
	if len(members) == 0 {
		members = []Element{el}
	}
	for _, member := range members {
		var pick Element
		if member == el {
			pick = selected
		}
		name, value, err := ReadValue(member, pick)
		if err != nil {
			return "", nil, fmt.Errorf("dom: read group %q: %w", group, err)
		}
		composite[name] = value
	}
	return group, composite, nil
}

// WriteValue reflects value into el.
func WriteValue(el Element, value any) error {
	if el == nil {
		return fmt.Errorf("dom: write value: nil element")
	}
	codecFor(el).write(el, value)
	return nil
}

// Coerce converts a persisted value into the control's semantic type.
func Coerce(el Element, value any) any {
	if el == nil {
		return value
	}
	return codecFor(el).coerce(value)
}

// Lookup resolves the control bound to option, falling back to the enclosing
// radio group when option names a single radio member.
func Lookup(doc Document, option string) Element {
	if doc == nil || option == "" {
		return nil
	}
	el := doc.ByName(option)
	if IsRadio(el) {
		if group := Closest(el, KindRadioGroup); group != nil {
			return group
		}
	}
	return el
}
