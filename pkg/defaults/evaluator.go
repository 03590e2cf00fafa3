package defaults

import (
	"sync"
	"time"
)

// Env is the input a default rule is evaluated against.
type Env struct {
	// Option is the option or group name being defaulted.
	Option string
	// Values are exposed to rules as top-level variables.
	Values   map[string]any
	Metadata map[string]any
	Now      *time.Time
}

func (env Env) withDefaults() Env {
	if env.Now == nil {
		now := time.Now()
		env.Now = &now
	}
	if env.Values == nil {
		env.Values = map[string]any{}
	}
	if env.Metadata == nil {
		env.Metadata = map[string]any{}
	}
	return env
}

func (env Env) bindings() map[string]any {
	out := make(map[string]any, len(env.Values)+3)
	for key, value := range env.Values {
		out[key] = value
	}
	out["option"] = env.Option
	out["now"] = *env.Now
	out["metadata"] = env.Metadata
	return out
}

// Evaluator executes a default rule expression.
type Evaluator interface {
	Engine() string
	Evaluate(env Env, expr string) (any, error)
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type memoryProgramCache struct {
	programs sync.Map
}

// NewProgramCache returns an unbounded in-memory ProgramCache.
func NewProgramCache() ProgramCache {
	return &memoryProgramCache{}
}

func (c *memoryProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *memoryProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

// EvaluatorOption configures the built-in evaluators.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	cache   ProgramCache
	helpers *Helpers
}

// WithProgramCache wires a ProgramCache into an evaluator.
func WithProgramCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// WithEvaluatorHelpers makes helpers callable from rules by name and through
// call. The evaluator keeps a copy of the set.
func WithEvaluatorHelpers(helpers *Helpers) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.helpers = helpers.snapshot()
	}
}

func applyEvaluatorOptions(opts []EvaluatorOption) evaluatorConfig {
	cfg := evaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
