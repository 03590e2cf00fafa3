package activity

import (
	"context"
	"reflect"
	"testing"
)

func TestOptionSavedCarriesOptionAndValue(t *testing.T) {
	meta := map[string]any{"source": "input"}
	event := OptionSaved(SettingsEventInput{
		ActorID:  " actor ",
		Option:   " fontSize ",
		Group:    "display",
		Value:    float64(14),
		HasValue: true,
		Metadata: meta,
	})

	if event.Verb != VerbOptionSaved || event.ObjectType != ObjectOption || event.ObjectID != "fontSize" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	if event.Metadata["value"] != float64(14) || event.Metadata["group"] != "display" || event.Metadata["source"] != "input" {
		t.Fatalf("unexpected metadata: %+v", event.Metadata)
	}
	if _, ok := meta["value"]; ok {
		t.Fatalf("input metadata must not be mutated")
	}
}

func TestOptionSavedRecordsPresentNull(t *testing.T) {
	event := OptionSaved(SettingsEventInput{Option: "telemetry", HasValue: true})
	value, ok := event.Metadata["value"]
	if !ok || value != nil {
		t.Fatalf("expected present null value, got %+v", event.Metadata)
	}

	withoutValue := OptionManaged(SettingsEventInput{Option: "proxy"})
	if _, ok := withoutValue.Metadata["value"]; ok {
		t.Fatalf("value must be omitted when absent")
	}
}

func TestSnapshotEventsPreferSnapshotID(t *testing.T) {
	reset := SettingsReset(SettingsEventInput{SnapshotID: "snap-1", Keys: []string{"a", "b"}})
	if reset.Verb != VerbReset || reset.ObjectType != ObjectSnapshot || reset.ObjectID != "snap-1" {
		t.Fatalf("unexpected reset event: %+v", reset)
	}
	if !reflect.DeepEqual([]string{"a", "b"}, reset.Metadata["keys"]) {
		t.Fatalf("expected keys metadata, got %v", reset.Metadata["keys"])
	}

	undone := SettingsUndone(SettingsEventInput{})
	if undone.ObjectID != ObjectSnapshot {
		t.Fatalf("expected fallback object id, got %q", undone.ObjectID)
	}
}

func TestSettingsEventsFlowThroughHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	for _, event := range []Event{
		OptionManaged(SettingsEventInput{Option: "proxy"}),
		SettingsReset(SettingsEventInput{SnapshotID: "snap"}),
	} {
		if err := hooks.Notify(context.Background(), event); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if !reflect.DeepEqual([]string{VerbOptionManaged, VerbReset}, capture.Verbs()) {
		t.Fatalf("unexpected verbs %v", capture.Verbs())
	}
}
