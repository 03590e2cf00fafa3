package autosettings

import (
	"context"

	"github.com/goliatone/go-autosettings/pkg/activity"
)

func (s *Settings) eventInput(input activity.SettingsEventInput) activity.SettingsEventInput {
	input.ActorID = s.actorID
	input.TenantID = s.tenantID
	return input
}

// emit hands event to the activity emitter. Audit failures never fail the
// operation that produced them.
func (s *Settings) emit(ctx context.Context, event activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("activity hook failed", "verb", event.Verb, "object", event.ObjectID, "error", err)
	}
}
