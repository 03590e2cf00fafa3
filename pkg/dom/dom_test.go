package dom

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type groupCache map[string]map[string]any

func (c groupCache) Group(name string) map[string]any { return c[name] }

func layoutGroup(checked string) (*Node, *Node, *Node) {
	grid := NewNode(WithAttr(AttrType, "radio"), WithAttr(AttrName, "layout"), WithValue("grid"), WithChecked(checked == "grid"))
	list := NewNode(WithAttr(AttrType, "radio"), WithAttr(AttrName, "layout"), WithValue("list"), WithChecked(checked == "list"))
	group := NewNode(WithAttr(AttrDataType, "radiogroup"), WithAttr(AttrDataName, "layout"), WithClass(ClassSetting), WithChildren(grid, list))
	return group, grid, list
}

func TestKindOf(t *testing.T) {
	cases := map[string]struct {
		node *Node
		want Kind
	}{
		"checkbox":       {NewNode(WithAttr(AttrType, "checkbox")), KindCheckbox},
		"data-type":      {NewNode(WithAttr(AttrDataType, "radiogroup")), KindRadioGroup},
		"number":         {NewNode(WithAttr(AttrType, "number")), KindNumeric},
		"range":          {NewNode(WithAttr(AttrType, "range")), KindNumeric},
		"type wins":      {NewNode(WithAttr(AttrType, "text"), WithAttr(AttrDataType, "checkbox")), KindText},
		"no annotations": {NewNode(), KindText},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.node))
		})
	}
}

func TestReadCheckboxTriState(t *testing.T) {
	box := NewNode(WithAttr(AttrType, "checkbox"), WithAttr(AttrName, "telemetry"), WithChecked(true))

	name, value, err := ReadValue(box, nil)
	require.NoError(t, err)
	assert.Equal(t, "telemetry", name)
	assert.Equal(t, true, value)

	box.SetIndeterminate(true)
	_, value, err = ReadValue(box, nil)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestReadRadioGroup(t *testing.T) {
	group, grid, _ := layoutGroup("list")

	name, value, err := ReadValue(group, nil)
	require.NoError(t, err)
	assert.Equal(t, "layout", name)
	assert.Equal(t, "list", value)

	_, value, err = ReadValue(group, grid)
	require.NoError(t, err)
	assert.Equal(t, "grid", value, "explicit selection wins over checked scan")
}

func TestReadRadioGroupWithoutSelection(t *testing.T) {
	group, _, _ := layoutGroup("")

	_, _, err := ReadValue(group, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSelection))
}

func TestReadNumericUsesNumberSemantics(t *testing.T) {
	field := NewNode(WithAttr(AttrType, "number"), WithAttr(AttrName, "fontSize"), WithValue(" 14 "))

	_, value, err := ReadValue(field, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(14), value)

	field.SetValue("fourteen")
	_, value, err = ReadValue(field, nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(value.(float64)))
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"":          0,
		"   ":       0,
		"42":        42,
		"-3.5":      -3.5,
		"1e3":       1000,
		"0x1F":      31,
		"Infinity":  math.Inf(1),
		"-Infinity": math.Inf(-1),
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseNumber(raw), raw)
	}
	for _, raw := range []string{"abc", "1_000", "inf", "NaN", "-0x10", "0x", "12px"} {
		assert.True(t, math.IsNaN(ParseNumber(raw)), raw)
	}
}

func TestWriteValueRoundTrips(t *testing.T) {
	box := NewNode(WithAttr(AttrType, "checkbox"))
	require.NoError(t, WriteValue(box, nil))
	assert.True(t, box.Indeterminate())
	require.NoError(t, WriteValue(box, true))
	assert.False(t, box.Indeterminate())
	assert.True(t, box.Checked())

	group, grid, list := layoutGroup("grid")
	require.NoError(t, WriteValue(group, "list"))
	assert.False(t, grid.Checked())
	assert.True(t, list.Checked())

	field := NewNode(WithAttr(AttrType, "range"))
	require.NoError(t, WriteValue(field, "14"))
	assert.Equal(t, "14", field.Value())
	require.NoError(t, WriteValue(field, 2.5))
	assert.Equal(t, "2.5", field.Value())

	text := NewNode()
	require.NoError(t, WriteValue(text, "dark"))
	assert.Equal(t, "dark", text.Value())
}

func TestCoerce(t *testing.T) {
	numeric := NewNode(WithAttr(AttrType, "number"))
	assert.Equal(t, float64(14), Coerce(numeric, "14"))
	assert.Nil(t, Coerce(numeric, nil))
	assert.Equal(t, "14", Coerce(NewNode(), "14"))
}

func TestReadWithGroupOverlaysCache(t *testing.T) {
	columns := NewNode(WithAttr(AttrType, "number"), WithAttr(AttrName, "columns"), WithAttr(AttrOptionGroup, "grid"), WithValue("4"))
	dense := NewNode(WithAttr(AttrType, "checkbox"), WithAttr(AttrName, "dense"), WithAttr(AttrOptionGroup, "grid"), WithChecked(true))
	doc := NewDocument(NewNode(WithChildren(columns, dense)))
	cache := groupCache{"grid": {"columns": float64(3), "gap": float64(8)}}

	name, value, err := ReadWithGroup(doc, columns, nil, cache, true)
	require.NoError(t, err)
	assert.Equal(t, "grid", name)
	assert.Equal(t, map[string]any{"columns": float64(4), "dense": true, "gap": float64(8)}, value)
	assert.Equal(t, float64(3), cache["grid"]["columns"], "cache is not mutated")

	name, value, err = ReadWithGroup(doc, columns, nil, cache, false)
	require.NoError(t, err)
	assert.Equal(t, "columns", name)
	assert.Equal(t, float64(4), value)
}

func TestLookupNormalizesRadioToGroup(t *testing.T) {
	group, _, _ := layoutGroup("grid")
	doc := NewDocument(group)

	assert.Same(t, group, Lookup(doc, "layout"))
	assert.Nil(t, Lookup(doc, "missing"))
}

func TestMemoryDocumentQueries(t *testing.T) {
	reset := NewNode(WithAttr(AttrID, IDResetButton))
	theme := NewNode(WithAttr(AttrDataName, "theme"), WithClass(ClassSetting, ClassSaveOnChange))
	named := NewNode(WithAttr(AttrName, "theme"), WithClass(ClassSetting))
	doc := NewDocument(NewNode(WithChildren(theme, named)), reset)

	assert.Same(t, named, doc.ByName("theme"), "name attribute wins over data-name")
	assert.Len(t, doc.ByClass(ClassSetting), 2)
	assert.Len(t, doc.ByClass(ClassSaveOnChange), 1)
	assert.Same(t, reset, doc.ByID(IDResetButton))
	assert.Nil(t, doc.ByID("nope"))
}

func TestFireBubbles(t *testing.T) {
	group, grid, _ := layoutGroup("grid")

	var seen []Event
	group.AddEventListener(EventChange, func(ev Event) { seen = append(seen, ev) })
	grid.Fire(EventChange)

	require.Len(t, seen, 1)
	assert.Same(t, grid, seen[0].Target)
	assert.Same(t, group, seen[0].CurrentTarget)
	assert.Nil(t, group.Parent())
}
