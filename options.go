package autosettings

import (
	"io"
	"log/slog"

	"github.com/goliatone/go-autosettings/pkg/activity"
	"github.com/goliatone/go-autosettings/pkg/defaults"
	"github.com/goliatone/go-autosettings/pkg/notify"
)

// Option configures a Settings handle.
type Option func(cfg *settingsConfig)

type settingsConfig struct {
	logger     *slog.Logger
	notifier   notify.Notifier
	translator notify.Translator

	provider    defaults.Provider
	providerSet bool
	emitter     *activity.Emitter
	actorID     string
	tenantID    string
}

func applyOptions(opts []Option) settingsConfig {
	cfg := settingsConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.notifier == nil {
		cfg.notifier = notify.Nop{}
	}
	if cfg.translator == nil {
		cfg.translator = notify.TranslatorFunc(func(key string) string { return key })
	}
	return cfg
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *settingsConfig) {
		cfg.logger = logger
	}
}

// WithNotifier sets where user-facing notices go.
func WithNotifier(notifier notify.Notifier) Option {
	return func(cfg *settingsConfig) {
		cfg.notifier = notifier
	}
}

// WithTranslator resolves message keys written into the page, such as the
// title of a managed control.
func WithTranslator(translator notify.Translator) Option {
	return func(cfg *settingsConfig) {
		cfg.translator = translator
	}
}

// WithDefaultProvider installs the default option provider.
func WithDefaultProvider(provider defaults.Provider) Option {
	return func(cfg *settingsConfig) {
		cfg.provider = provider
		cfg.providerSet = true
	}
}

// WithDefaultsDisabled marks the handle ready without any default provider.
func WithDefaultsDisabled() Option {
	return func(cfg *settingsConfig) {
		cfg.provider = nil
		cfg.providerSet = true
	}
}

// WithActivityEmitter sends audit events for saves, managed controls, resets
// and undos to emitter.
func WithActivityEmitter(emitter *activity.Emitter) Option {
	return func(cfg *settingsConfig) {
		cfg.emitter = emitter
	}
}

// WithActivityHooks is a shortcut for an enabled emitter over hooks.
func WithActivityHooks(hooks activity.Hooks) Option {
	return func(cfg *settingsConfig) {
		cfg.emitter = activity.NewEmitter(hooks, activity.Config{Enabled: true})
	}
}

// WithActor stamps emitted events with who made the change.
func WithActor(actorID, tenantID string) Option {
	return func(cfg *settingsConfig) {
		cfg.actorID = actorID
		cfg.tenantID = tenantID
	}
}
