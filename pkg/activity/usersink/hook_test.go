package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-autosettings/pkg/activity"
	"github.com/goliatone/go-autosettings/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookMapsSavedOptionEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.OptionSaved(activity.SettingsEventInput{
		ActorID:    actorID.String(),
		TenantID:   tenantID.String(),
		UserID:     "not-a-uuid",
		Channel:    "settings",
		Option:     "theme",
		Value:      "dark",
		HasValue:   true,
		OccurredAt: at,
	})
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected identities: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("invalid ids must map to uuid.Nil, got %s", record.UserID)
	}
	if record.Verb != activity.VerbOptionSaved || record.ObjectType != activity.ObjectOption || record.ObjectID != "theme" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "settings" || !record.OccurredAt.Equal(at) {
		t.Fatalf("unexpected channel or time: %+v", record)
	}
	if record.Data["value"] != "dark" || record.Data["option"] != "theme" {
		t.Fatalf("expected metadata passthrough, got %v", record.Data)
	}
}

func TestHookSkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	_ = usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{})
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
	if err := (usersink.Hook{}).Notify(context.Background(), activity.SettingsReset(activity.SettingsEventInput{})); err != nil {
		t.Fatalf("hook without sink must be inert, got %v", err)
	}
}

func TestHookStampsTimeAndReturnsSinkError(t *testing.T) {
	boom := errors.New("sink down")
	sink := &recordingSink{err: boom}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{Verb: activity.VerbReset, ObjectType: activity.ObjectSnapshot, ObjectID: "snap"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected a stamped record, got %+v", sink.records)
	}
}
