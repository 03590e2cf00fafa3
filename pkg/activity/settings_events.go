package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the settings layer.
const (
	VerbOptionSaved   = "settings.option.saved"
	VerbOptionManaged = "settings.option.managed"
	VerbReset         = "settings.reset"
	VerbUndone        = "settings.undone"
)

// Object types used by settings events.
const (
	ObjectOption   = "settings.option"
	ObjectSnapshot = "settings.snapshot"
)

// SettingsEventInput carries the fields shared by settings events.
type SettingsEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Option     string
	Group      string
	Value      any
	HasValue   bool
	SnapshotID string
	Keys       []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// OptionSaved describes a value written to synced storage.
func OptionSaved(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbOptionSaved, ObjectOption, input)
}

// OptionManaged describes a control locked by an administrator policy.
func OptionManaged(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbOptionManaged, ObjectOption, input)
}

// SettingsReset describes a reset of every synced setting.
func SettingsReset(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbReset, ObjectSnapshot, input)
}

// SettingsUndone describes a restored reset snapshot.
func SettingsUndone(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbUndone, ObjectSnapshot, input)
}

func buildSettingsEvent(verb, objectType string, input SettingsEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}

	option := strings.TrimSpace(input.Option)
	if option != "" {
		set("option", option)
	}
	if group := strings.TrimSpace(input.Group); group != "" {
		set("group", group)
	}
	if input.HasValue {
		set("value", input.Value)
	}
	snapshotID := strings.TrimSpace(input.SnapshotID)
	if snapshotID != "" {
		set("snapshot_id", snapshotID)
	}
	if len(input.Keys) > 0 {
		set("keys", append([]string(nil), input.Keys...))
	}

	objectID := option
	if objectType == ObjectSnapshot && snapshotID != "" {
		objectID = snapshotID
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
