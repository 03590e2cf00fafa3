// Package notify is the user-facing message surface of the settings layer.
// Messages are addressed by localisation key; a Translator turns keys into
// text for the active language.
package notify

import (
	"io"
	"log/slog"
	"sync"
)

// Message keys shown by the settings layer.
const (
	MsgCouldNotSaveOption             = "couldNotSaveOption"
	MsgSomeSettingsAreManaged         = "someSettingsAreManaged"
	MsgCouldNotLoadOptions            = "couldNotLoadOptions"
	MsgResettingOptionsWorked         = "resettingOptionsWorked"
	MsgUndoButton                     = "messageUndoButton"
	MsgCouldNotUndoAction             = "couldNotUndoAction"
	MsgResettingOptionsFailed         = "resettingOptionsFailed"
	MsgOptionIsDisabledBecauseManaged = "optionIsDisabledBecauseManaged"
)

// Action is a button attached to a success notice.
type Action struct {
	Text string
	Do   func()
}

// Notifier displays notices to the user.
type Notifier interface {
	ShowError(key string, persistent bool)
	ShowInfo(key string, persistent bool)
	ShowSuccess(key string, persistent bool, action *Action)
	HideSuccess()
	// SetSuccessHook registers callbacks run when a success notice is shown
	// and when it is hidden. Either may be nil.
	SetSuccessHook(onShow, onHide func())
}

// Translator resolves a message key to display text.
type Translator interface {
	Translate(key string) string
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(key string) string

// Translate implements Translator.
func (f TranslatorFunc) Translate(key string) string {
	if f == nil {
		return key
	}
	return f(key)
}

type hooks struct {
	mu     sync.Mutex
	onShow func()
	onHide func()
}

func (h *hooks) set(onShow, onHide func()) {
	h.mu.Lock()
	h.onShow, h.onHide = onShow, onHide
	h.mu.Unlock()
}

func (h *hooks) shown() {
	h.mu.Lock()
	fn := h.onShow
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (h *hooks) hidden() {
	h.mu.Lock()
	fn := h.onHide
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// LogNotifier writes notices to a slog.Logger. It suits headless hosts such
// as the CLI, where there is no page to render a message bar on.
type LogNotifier struct {
	logger     *slog.Logger
	translator Translator
	hooks      hooks

	mu      sync.Mutex
	showing bool
}

// NewLogNotifier builds a LogNotifier. A nil translator prints raw keys.
func NewLogNotifier(logger *slog.Logger, translator Translator) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if translator == nil {
		translator = TranslatorFunc(func(key string) string { return key })
	}
	return &LogNotifier{logger: logger, translator: translator}
}

func (n *LogNotifier) ShowError(key string, persistent bool) {
	n.logger.Error(n.translator.Translate(key), "key", key, "persistent", persistent)
}

func (n *LogNotifier) ShowInfo(key string, persistent bool) {
	n.logger.Info(n.translator.Translate(key), "key", key, "persistent", persistent)
}

func (n *LogNotifier) ShowSuccess(key string, persistent bool, action *Action) {
	attrs := []any{"key", key, "persistent", persistent}
	if action != nil {
		attrs = append(attrs, "action", n.translator.Translate(action.Text))
	}
	n.logger.Info(n.translator.Translate(key), attrs...)
	n.mu.Lock()
	n.showing = true
	n.mu.Unlock()
	n.hooks.shown()
}

func (n *LogNotifier) HideSuccess() {
	n.mu.Lock()
	wasShowing := n.showing
	n.showing = false
	n.mu.Unlock()
	if wasShowing {
		n.hooks.hidden()
	}
}

func (n *LogNotifier) SetSuccessHook(onShow, onHide func()) {
	n.hooks.set(onShow, onHide)
}

// Nop discards every notice.
type Nop struct{}

func (Nop) ShowError(string, bool)               {}
func (Nop) ShowInfo(string, bool)                {}
func (Nop) ShowSuccess(string, bool, *Action)    {}
func (Nop) HideSuccess()                         {}
func (Nop) SetSuccessHook(onShow, onHide func()) {}
