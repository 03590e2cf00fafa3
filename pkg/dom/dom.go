// Package dom binds logical option names to form controls and converts
// between control state and option values.
//
// The package only depends on the small Element/Document contracts below, so
// hosts can back them with a real browser bridge, a template renderer or the
// in-memory MemoryDocument used by tests and examples.
package dom

import "errors"

// Attribute names and marker classes read from the options page.
const (
	AttrName        = "name"
	AttrDataName    = "data-name"
	AttrOptionGroup = "data-optiongroup"
	AttrType        = "type"
	AttrDataType    = "data-type"
	AttrValue       = "value"
	AttrDisabled    = "disabled"
	AttrTitle       = "title"
	AttrID          = "id"

	ClassSetting              = "setting"
	ClassSaveOnInput          = "save-on-input"
	ClassSaveOnChange         = "save-on-change"
	ClassSaveOnInputDebounce  = "save-on-input-debounce"
	ClassSaveOnChangeDebounce = "save-on-change-debounce"
	ClassTriggerOnUpdate      = "trigger-on-update"
	ClassTriggerOnChange      = "trigger-on-change"

	IDResetButton = "resetButton"
)

// Event types the orchestrator listens to.
const (
	EventInput  = "input"
	EventChange = "change"
	EventClick  = "click"
)

// ErrNoSelection is returned when a radio group has no checked member.
var ErrNoSelection = errors.New("dom: no radio element is selected")

// Event is a UI event delivered to listeners. Target is the element the event
// originated from, CurrentTarget the element whose listener is running.
type Event struct {
	Type          string
	Target        Element
	CurrentTarget Element
}

// Listener handles a UI event.
type Listener func(Event)

// Element is the control surface the binding needs from a form element.
type Element interface {
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)
	HasClass(class string) bool

	Value() string
	SetValue(value string)
	Checked() bool
	SetChecked(checked bool)
	Indeterminate() bool
	SetIndeterminate(indeterminate bool)

	// Parent returns the enclosing element or nil at the root.
	Parent() Element
	// Children returns all descendants in document order.
	Children() []Element

	AddEventListener(eventType string, listener Listener)
}

// Document looks up elements on the options page.
type Document interface {
	// ByName returns the first element whose name, or data-name, equals name.
	ByName(name string) Element
	ByGroup(group string) []Element
	ByClass(class string) []Element
	ByID(id string) Element
}

// HasAttr reports whether el carries attribute name.
func HasAttr(el Element, name string) bool {
	if el == nil {
		return false
	}
	_, ok := el.Attr(name)
	return ok
}

// attr returns the attribute value or "" when missing.
func attr(el Element, name string) string {
	value, _ := el.Attr(name)
	return value
}

// OptionName returns the logical option name bound to el.
func OptionName(el Element) string {
	if el == nil {
		return ""
	}
	if name := attr(el, AttrName); name != "" {
		return name
	}
	return attr(el, AttrDataName)
}

// GroupOf returns the option group el belongs to.
func GroupOf(el Element) (string, bool) {
	if el == nil {
		return "", false
	}
	group, ok := el.Attr(AttrOptionGroup)
	if !ok || group == "" {
		return "", false
	}
	return group, true
}

// Closest returns el or its nearest ancestor of the given kind.
func Closest(el Element, kind Kind) Element {
	for current := el; current != nil; current = current.Parent() {
		if KindOf(current) == kind {
			return current
		}
	}
	return nil
}

// IsRadio reports whether el is a single radio input.
func IsRadio(el Element) bool {
	return el != nil && attr(el, AttrType) == "radio"
}

// radioMembers returns the radio inputs inside a radio group container.
func radioMembers(group Element) []Element {
	var out []Element
	for _, child := range group.Children() {
		if IsRadio(child) {
			out = append(out, child)
		}
	}
	return out
}

// FirstRadioName returns the name of the first radio member of group.
func FirstRadioName(group Element) string {
	for _, member := range radioMembers(group) {
		if name := OptionName(member); name != "" {
			return name
		}
	}
	return ""
}
