// Package autosettings keeps the controls of an options page in sync with
// persisted user settings.
//
// A Settings handle binds form controls to option names, loads every control
// from administrator policy, user storage or defaults, and saves changes back
// as the user edits. Hosts register triggers to react to loads and saves and
// overrides to take over either step for a single option.
package autosettings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/goliatone/go-autosettings/internal/debounce"
	"github.com/goliatone/go-autosettings/internal/layering"
	"github.com/goliatone/go-autosettings/pkg/activity"
	"github.com/goliatone/go-autosettings/pkg/defaults"
	"github.com/goliatone/go-autosettings/pkg/dom"
	"github.com/goliatone/go-autosettings/pkg/notify"
	"github.com/goliatone/go-autosettings/pkg/resolve"
	"github.com/goliatone/go-autosettings/pkg/store"
	"github.com/goliatone/go-autosettings/pkg/trigger"
)

// Settings is the handle for one options page. Every registry, cache and flag
// lives on the handle, so independent pages can coexist in one process.
type Settings struct {
	doc        dom.Document
	synced     store.Synced
	managed    store.Managed
	defaults   *defaults.Registry
	engine     *resolve.Engine
	triggers   *trigger.Registry
	notifier   notify.Notifier
	translator notify.Translator
	emitter    *activity.Emitter
	logger     *slog.Logger
	actorID    string
	tenantID   string

	// ctx scopes work started by page listeners. Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	managedNotice sync.Once

	mu          sync.Mutex
	debounced   *debounce.Group[dom.Element]
	snapshot    *store.Snapshot
	unobserve   func()
	initialized bool
}

// New builds a Settings handle over doc. managed may be nil when no
// administrator policy exists; doc may be nil for headless use such as the
// CLI, where only Explain, GetOption and DecodeGroup make sense.
func New(doc dom.Document, synced store.Synced, managed store.Managed, opts ...Option) *Settings {
	cfg := applyOptions(opts)
	if doc == nil {
		doc = dom.NewDocument()
	}
	if managed == nil {
		managed = store.NewPolicy(nil)
	}

	registry := defaults.NewRegistry()
	if cfg.providerSet {
		registry.Set(cfg.provider)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Settings{
		doc:        doc,
		synced:     synced,
		managed:    managed,
		defaults:   registry,
		engine:     resolve.NewEngine(registry, resolve.WithLogger(cfg.logger)),
		notifier:   cfg.notifier,
		translator: cfg.translator,
		emitter:    cfg.emitter,
		logger:     cfg.logger,
		actorID:    cfg.actorID,
		tenantID:   cfg.tenantID,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.triggers = trigger.New(
		trigger.WithLogger(cfg.logger),
		trigger.WithValueLookup(s.currentValue),
	)
	return s
}

// Init verifies a default provider decision was made, attaches the page
// listeners and runs the first full load. A load failure is shown to the user
// and returned.
func (s *Settings) Init(ctx context.Context, cfg Config) error {
	if err := s.defaults.Verify(); err != nil {
		return optionError("init", "", err)
	}

	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return optionError("init", "", ErrAlreadyInitialized)
	}
	s.initialized = true
	s.debounced = debounce.NewGroup[dom.Element](cfg.debounceTime())
	s.mu.Unlock()

	s.attachListeners()
	s.observeSynced()

	if err := s.LoadAll(ctx); err != nil {
		s.logger.Error("could not load options", "error", err)
		s.notifier.ShowError(notify.MsgCouldNotLoadOptions, false)
		return optionError("init", "", err)
	}
	s.logger.Info("options loaded")
	return nil
}

func (s *Settings) attachListeners() {
	bind := func(class, eventType string, listener dom.Listener) {
		for _, el := range s.doc.ByClass(class) {
			el.AddEventListener(eventType, listener)
		}
	}
	bind(dom.ClassSaveOnInput, dom.EventInput, s.onSave)
	bind(dom.ClassSaveOnChange, dom.EventChange, s.onSave)
	for _, class := range []string{dom.ClassSaveOnInputDebounce, dom.ClassSaveOnChangeDebounce} {
		eventType := dom.EventInput
		if class == dom.ClassSaveOnChangeDebounce {
			eventType = dom.EventChange
		}
		for _, el := range s.doc.ByClass(class) {
			el.AddEventListener(eventType, func(ev dom.Event) {
				s.debounced.Call(el, func() { s.onSave(ev) })
			})
		}
	}
	bind(dom.ClassTriggerOnUpdate, dom.EventInput, s.onEventTrigger)
	bind(dom.ClassTriggerOnChange, dom.EventChange, s.onEventTrigger)

	if reset := s.doc.ByID(dom.IDResetButton); reset != nil {
		reset.AddEventListener(dom.EventClick, func(ev dom.Event) {
			if err := s.Reset(s.ctx, ev); err != nil {
				s.logger.Error("reset failed", "error", err)
			}
		})
	}
}

func (s *Settings) onSave(ev dom.Event) {
	if err := s.SaveOption(s.ctx, ev); err != nil {
		s.logger.Error("save failed", "error", err)
	}
}

func (s *Settings) onEventTrigger(ev dom.Event) {
	if _, err := s.RunEventTrigger(s.ctx, ev); err != nil {
		s.logger.Error("event trigger failed", "event", ev.Type, "error", err)
	}
}

// RunEventTrigger reads the control an input or change event came from and
// runs the update or change triggers of its option.
func (s *Settings) RunEventTrigger(ctx context.Context, ev dom.Event) ([]any, error) {
	el, selected := eventTarget(ev)
	option, value, err := dom.ReadValue(el, selected)
	if err != nil {
		return nil, optionError("trigger", dom.OptionName(el), err)
	}
	results, err := s.triggers.DispatchEvent(ctx, ev, option, value)
	return results, optionError("trigger", option, err)
}

// observeSynced keeps remembered groups current when the synced store is
// written by someone else, such as another page or the CLI.
func (s *Settings) observeSynced() {
	observable, ok := s.synced.(store.Observable)
	if !ok {
		return
	}
	cancel := observable.Observe(func(changes []store.Change) {
		for _, change := range changes {
			if !s.engine.Remembered(change.Key) {
				continue
			}
			composite, isComposite := layering.Composite(change.New)
			if change.Removed || !isComposite {
				s.engine.Forget(change.Key)
				continue
			}
			s.engine.Remember(change.Key, composite)
		}
	})
	s.mu.Lock()
	s.unobserve = cancel
	s.mu.Unlock()
}

// FlushPending runs every debounced save that is still waiting.
func (s *Settings) FlushPending() {
	s.mu.Lock()
	group := s.debounced
	s.mu.Unlock()
	if group != nil {
		group.FlushAll()
	}
}

// Close drops pending debounced saves, stops observing the store and cancels
// work started by page listeners.
func (s *Settings) Close() error {
	s.mu.Lock()
	group, unobserve := s.debounced, s.unobserve
	s.unobserve = nil
	s.mu.Unlock()

	if group != nil {
		group.CancelAll()
	}
	if unobserve != nil {
		unobserve()
	}
	s.cancel()
	return nil
}

// SetDefaultOptionProvider replaces the default provider. A nil provider
// disables defaults.
func (s *Settings) SetDefaultOptionProvider(provider defaults.Provider) {
	s.defaults.Set(provider)
}

// DisableDefaults turns default lookup off.
func (s *Settings) DisableDefaults() {
	s.defaults.Set(nil)
}

// Triggers exposes the trigger registry.
func (s *Settings) Triggers() *trigger.Registry { return s.triggers }

// RegisterSave runs fn after option was read for saving. An empty option
// matches every save.
func (s *Settings) RegisterSave(option string, fn trigger.Func) { s.triggers.RegisterSave(option, fn) }

// RegisterUpdate runs fn on input events of option.
func (s *Settings) RegisterUpdate(option string, fn trigger.Func) {
	s.triggers.RegisterUpdate(option, fn)
}

// RegisterChange runs fn on change events of option.
func (s *Settings) RegisterChange(option string, fn trigger.Func) {
	s.triggers.RegisterChange(option, fn)
}

// RegisterBeforeLoad runs fn before every full load. An error aborts the load.
func (s *Settings) RegisterBeforeLoad(fn func(ctx context.Context) error) {
	s.triggers.RegisterBeforeLoad(fn)
}

// RegisterAfterLoad runs fn once every option of a full load was applied.
func (s *Settings) RegisterAfterLoad(fn func(ctx context.Context) error) {
	s.triggers.RegisterAfterLoad(fn)
}

// ReplaySavesAfterLoad re-runs every save trigger with its option's current
// value after each full load.
func (s *Settings) ReplaySavesAfterLoad() { s.triggers.ReplaySavesAfterLoad() }

// AddSaveOverride chains fn in front of every save of option. It may rewrite
// the value or handle the save itself.
func (s *Settings) AddSaveOverride(option string, fn trigger.Override) {
	s.triggers.AddSaveOverride(option, fn)
}

// AddLoadOverride chains fn in front of applying a loaded value of option to
// its control.
func (s *Settings) AddLoadOverride(option string, fn trigger.Override) {
	s.triggers.AddLoadOverride(option, fn)
}

// UnregisterAll clears every trigger and override.
func (s *Settings) UnregisterAll() { s.triggers.UnregisterAll() }
