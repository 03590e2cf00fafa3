package autosettings

import (
	"context"
	"sort"

	"github.com/goliatone/go-autosettings/pkg/activity"
	"github.com/goliatone/go-autosettings/pkg/dom"
	"github.com/goliatone/go-autosettings/pkg/notify"
	"github.com/goliatone/go-autosettings/pkg/store"
)

// Reset snapshots the synced store, clears it and reloads the page. On
// success a notice offers to undo the reset; the snapshot lives until that
// notice is hidden. A failed reset leaves nothing to undo. The control that
// started the reset is disabled while it runs.
func (s *Settings) Reset(ctx context.Context, ev dom.Event) error {
	if initiator := ev.Target; initiator != nil {
		initiator.SetAttr(dom.AttrDisabled, "")
		defer initiator.RemoveAttr(dom.AttrDisabled)
	}

	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()

	snap, err := store.TakeSnapshot(ctx, s.synced)
	if err != nil {
		return s.resetFailed(err)
	}
	if err := s.synced.Clear(ctx); err != nil {
		return s.resetFailed(err)
	}

	// The snapshot becomes undoable only once the store was actually cleared.
	s.mu.Lock()
	s.snapshot = &snap
	s.mu.Unlock()
	s.notifier.SetSuccessHook(nil, func() {
		s.discardSnapshot(snap.ID)
	})

	if err := s.LoadAll(ctx); err != nil {
		s.discardSnapshot(snap.ID)
		return s.resetFailed(err)
	}

	s.logger.Info("options reset", "snapshot", snap.ID, "keys", len(snap.Values))
	s.notifier.ShowSuccess(notify.MsgResettingOptionsWorked, true, &notify.Action{
		Text: notify.MsgUndoButton,
		Do: func() {
			if err := s.Undo(s.ctx); err != nil {
				s.logger.Error("could not undo option resetting", "error", err)
			}
		},
	})
	s.emit(ctx, activity.SettingsReset(s.eventInput(activity.SettingsEventInput{
		SnapshotID: snap.ID,
		Keys:       snapshotKeys(snap),
	})))
	return nil
}

func (s *Settings) resetFailed(err error) error {
	s.logger.Error("resetting options failed", "error", err)
	s.notifier.ShowError(notify.MsgResettingOptionsFailed, true)
	return optionError("reset", "", err)
}

// Undo restores the snapshot taken by the last Reset and reloads the page.
// The snapshot is consumed whether or not the restore succeeds.
func (s *Settings) Undo(ctx context.Context) error {
	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()
	if snap == nil {
		s.notifier.ShowError(notify.MsgCouldNotUndoAction, false)
		return optionError("undo", "", ErrNoResetSnapshot)
	}
	defer s.notifier.HideSuccess()
	defer s.discardSnapshot(snap.ID)

	if err := store.Restore(ctx, s.synced, *snap); err != nil {
		s.logger.Error("could not undo option resetting", "error", err)
		s.notifier.ShowError(notify.MsgCouldNotUndoAction, false)
		return optionError("undo", "", err)
	}
	if err := s.LoadAll(ctx); err != nil {
		s.logger.Error("could not reload after undo", "error", err)
		s.notifier.ShowError(notify.MsgCouldNotUndoAction, false)
		return optionError("undo", "", err)
	}

	s.logger.Info("option reset undone", "snapshot", snap.ID)
	s.emit(ctx, activity.SettingsUndone(s.eventInput(activity.SettingsEventInput{
		SnapshotID: snap.ID,
		Keys:       snapshotKeys(*snap),
	})))
	return nil
}

// discardSnapshot forgets the snapshot if id is still the current one.
func (s *Settings) discardSnapshot(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot != nil && s.snapshot.ID == id {
		s.snapshot = nil
		s.logger.Debug("reset snapshot discarded", "snapshot", id)
	}
}

func snapshotKeys(snap store.Snapshot) []string {
	keys := make([]string, 0, len(snap.Values))
	for key := range snap.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
