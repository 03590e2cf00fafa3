package autosettings

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-autosettings/pkg/defaults"
	"github.com/goliatone/go-autosettings/pkg/dom"
	"github.com/goliatone/go-autosettings/pkg/trigger"
)

var (
	// ErrOptionManaged is returned when code tries to change an option that an
	// administrator policy has locked.
	ErrOptionManaged = errors.New("autosettings: option is managed by policy")
	// ErrUnknownOption is returned when no control is bound to an option.
	ErrUnknownOption = errors.New("autosettings: no control bound to option")
	// ErrNoResetSnapshot is returned by Undo when there is nothing to restore.
	ErrNoResetSnapshot = errors.New("autosettings: no reset snapshot to restore")
	// ErrAlreadyInitialized is returned by a second Init on the same handle.
	ErrAlreadyInitialized = errors.New("autosettings: already initialized")

	ErrNotReady            = defaults.ErrNotReady
	ErrNoSelection         = dom.ErrNoSelection
	ErrInvalidTriggerEvent = trigger.ErrInvalidTriggerEvent
)

// OptionError records the operation and option a failure belongs to.
type OptionError struct {
	Op     string
	Option string
	Err    error
}

func (e *OptionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Option == "" {
		return fmt.Sprintf("autosettings: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("autosettings: %s %q: %v", e.Op, e.Option, e.Err)
}

func (e *OptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func optionError(op, option string, err error) error {
	if err == nil {
		return nil
	}
	var existing *OptionError
	if errors.As(err, &existing) && existing.Op == op && existing.Option == option {
		return err
	}
	return &OptionError{Op: op, Option: option, Err: err}
}
