package dom

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the closed set of control types the binding knows how to read and
// write.
type Kind int

const (
	KindText Kind = iota
	KindCheckbox
	KindRadioGroup
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindCheckbox:
		return "checkbox"
	case KindRadioGroup:
		return "radiogroup"
	case KindNumeric:
		return "numeric"
	default:
		return "text"
	}
}

var kindByType = map[string]Kind{
	"checkbox":   KindCheckbox,
	"radiogroup": KindRadioGroup,
	"number":     KindNumeric,
	"range":      KindNumeric,
}

// KindOf reads the type attribute, falling back to data-type.
func KindOf(el Element) Kind {
	if el == nil {
		return KindText
	}
	declared := attr(el, AttrType)
	if declared == "" {
		declared = attr(el, AttrDataType)
	}
	if kind, ok := kindByType[declared]; ok {
		return kind
	}
	return KindText
}

// codec converts between control state and option values for one Kind.
type codec struct {
	read   func(el, selected Element) (name string, value any, err error)
	write  func(el Element, value any)
	coerce func(value any) any
}

var codecs = map[Kind]codec{
	KindText: {
		read:   readText,
		write:  writeText,
		coerce: identity,
	},
	KindCheckbox: {
		read:   readCheckbox,
		write:  writeCheckbox,
		coerce: identity,
	},
	KindRadioGroup: {
		read:   readRadioGroup,
		write:  writeRadioGroup,
		coerce: identity,
	},
	KindNumeric: {
		read:   readNumeric,
		write:  writeNumeric,
		coerce: coerceNumber,
	},
}

func codecFor(el Element) codec {
	return codecs[KindOf(el)]
}

func identity(value any) any { return value }

func readText(el, _ Element) (string, any, error) {
	return OptionName(el), el.Value(), nil
}

func writeText(el Element, value any) {
	el.SetValue(FormatValue(value))
}

func readCheckbox(el, _ Element) (string, any, error) {
	if el.Indeterminate() {
		return OptionName(el), nil, nil
	}
	return OptionName(el), el.Checked(), nil
}

func writeCheckbox(el Element, value any) {
	if value == nil {
		el.SetIndeterminate(true)
		return
	}
	el.SetIndeterminate(false)
	checked, _ := value.(bool)
	el.SetChecked(checked)
}

func readRadioGroup(el, selected Element) (string, any, error) {
	member := selected
	if member == nil {
		for _, candidate := range radioMembers(el) {
			if candidate.Checked() {
				member = candidate
				break
			}
		}
	}
	if member == nil {
		return "", nil, fmt.Errorf("%w: group %q", ErrNoSelection, OptionName(el))
	}
	return OptionName(member), member.Value(), nil
}

func writeRadioGroup(el Element, value any) {
	want := FormatValue(value)
	for _, member := range radioMembers(el) {
		member.SetChecked(member.Value() == want)
	}
}

func readNumeric(el, _ Element) (string, any, error) {
	return OptionName(el), ParseNumber(el.Value()), nil
}

func writeNumeric(el Element, value any) {
	el.SetValue(FormatValue(coerceNumber(value)))
}

func coerceNumber(value any) any {
	switch typed := value.(type) {
	case nil:
		return value
	case string:
		return ParseNumber(typed)
	case bool:
		if typed {
			return float64(1)
		}
		return float64(0)
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case int32:
		return float64(typed)
	default:
		return value
	}
}

// ParseNumber converts raw control text to a number the way a browser's
// Number() coercion does: surrounding whitespace is ignored, empty input is
// zero, hexadecimal is accepted and anything else unparsable is NaN.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		n, err := strconv.ParseUint(s[2:], prefixBase(lower[1]), 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	if strings.ContainsAny(lower, "inx_") {
		// ParseFloat accepts "inf", "nan", hex floats and underscores; Number() does not.
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

func prefixBase(marker byte) int {
	switch marker {
	case 'x':
		return 16
	case 'o':
		return 8
	default:
		return 2
	}
}

// FormatValue renders an option value as control text.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		if math.IsNaN(typed) {
			return "NaN"
		}
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}
