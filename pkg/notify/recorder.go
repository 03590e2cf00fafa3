package notify

import (
	"errors"
	"sync"
)

// Level classifies a recorded notice.
type Level string

const (
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
)

// Notice is one recorded call to a Notifier.
type Notice struct {
	Level      Level
	Key        string
	Persistent bool
	Action     *Action
}

// ErrNoAction is returned by TriggerAction when the visible success notice
// carries no action.
var ErrNoAction = errors.New("notify: no success action visible")

// Recorder is a Notifier that keeps every notice in memory. It stands in for
// the page message bar in tests.
type Recorder struct {
	hooks hooks

	mu      sync.Mutex
	notices []Notice
	active  *Notice
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *Recorder) ShowError(key string, persistent bool) {
	r.record(Notice{Level: LevelError, Key: key, Persistent: persistent})
}

func (r *Recorder) ShowInfo(key string, persistent bool) {
	r.record(Notice{Level: LevelInfo, Key: key, Persistent: persistent})
}

func (r *Recorder) ShowSuccess(key string, persistent bool, action *Action) {
	n := Notice{Level: LevelSuccess, Key: key, Persistent: persistent, Action: action}
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.active = &n
	r.mu.Unlock()
	r.hooks.shown()
}

func (r *Recorder) HideSuccess() {
	r.mu.Lock()
	wasActive := r.active != nil
	r.active = nil
	r.mu.Unlock()
	if wasActive {
		r.hooks.hidden()
	}
}

func (r *Recorder) SetSuccessHook(onShow, onHide func()) {
	r.hooks.set(onShow, onHide)
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Count returns how many notices with key were recorded.
func (r *Recorder) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notices {
		if n.Key == key {
			count++
		}
	}
	return count
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// TriggerAction clicks the action button of the visible success notice.
func (r *Recorder) TriggerAction() error {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active == nil || active.Action == nil || active.Action.Do == nil {
		return ErrNoAction
	}
	active.Action.Do()
	return nil
}

// Dismiss closes the visible success notice the way a user would.
func (r *Recorder) Dismiss() {
	r.HideSuccess()
}

// Reset forgets recorded notices. Hooks stay registered.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notices = nil
	r.active = nil
	r.mu.Unlock()
}
