package defaults

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-autosettings/internal/codec"
	"github.com/goliatone/go-autosettings/internal/layering"
)

// ErrNoEvaluator is returned when a rule provider has no usable evaluator,
// for example a JS provider in a binary built without js_eval.
var ErrNoEvaluator = errors.New("defaults: evaluator not configured")

// ErrRuleFailed matches every RuleError.
var ErrRuleFailed = errors.New("defaults: rule failed")

var errEmptyRule = errors.New("rule must not be empty")

// RuleError reports a rule that did not compile or run.
type RuleError struct {
	Engine string
	Option string
	Rule   string
	Err    error
}

func (e *RuleError) Error() string {
	msg := "defaults: "
	if e.Engine != "" {
		msg += e.Engine + " "
	}
	msg += fmt.Sprintf("rule for %q", e.Option)
	if e.Rule != "" {
		msg += fmt.Sprintf(" (%s)", e.Rule)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// Is reports ErrRuleFailed as a match.
func (e *RuleError) Is(target error) bool { return target == ErrRuleFailed }

// ruleError attributes err to a rule unless an evaluator already did.
func ruleError(engine, option, rule string, err error) error {
	if err == nil {
		return nil
	}
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return err
	}
	return &RuleError{Engine: engine, Option: option, Rule: rule, Err: err}
}

// RuleOption configures a RuleProvider.
type RuleOption func(*RuleProvider)

// WithEnvValues exposes values to every rule as top-level variables.
func WithEnvValues(values map[string]any) RuleOption {
	return func(p *RuleProvider) {
		p.values = layering.CloneMap(values)
	}
}

// WithMetadata exposes metadata to rules under the metadata variable.
func WithMetadata(metadata map[string]any) RuleOption {
	return func(p *RuleProvider) {
		p.metadata = layering.CloneMap(metadata)
	}
}

// WithEvaluatorLogger records every evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) RuleOption {
	return func(p *RuleProvider) {
		if logger == nil {
			p.logger = noopEvaluatorLogger{}
			return
		}
		p.logger = logger
	}
}

// WithHelpers makes helpers callable from rules. Only the providers that
// build their own evaluator use it; NewRuleProvider callers configure the
// evaluator with WithEvaluatorHelpers instead.
func WithHelpers(helpers *Helpers) RuleOption {
	return func(p *RuleProvider) {
		p.helpers = helpers
	}
}

// WithFallback consults fallback for options that have no rule.
func WithFallback(fallback Provider) RuleOption {
	return func(p *RuleProvider) {
		p.fallback = fallback
	}
}

// RuleProvider computes defaults by evaluating one expression per option.
type RuleProvider struct {
	evaluator Evaluator
	rules     map[string]string
	values    map[string]any
	metadata  map[string]any
	logger    EvaluatorLogger
	fallback  Provider
	helpers   *Helpers
}

// NewRuleProvider binds rules (option name to expression) to evaluator.
func NewRuleProvider(evaluator Evaluator, rules map[string]string, opts ...RuleOption) (*RuleProvider, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	p, err := newRuleProvider(rules, opts)
	if err != nil {
		return nil, err
	}
	p.evaluator = evaluator
	return p, nil
}

func newRuleProvider(rules map[string]string, opts []RuleOption) (*RuleProvider, error) {
	p := &RuleProvider{
		rules:  make(map[string]string, len(rules)),
		logger: noopEvaluatorLogger{},
	}
	for option, expr := range rules {
		if expr == "" {
			return nil, ruleError("", option, "", errEmptyRule)
		}
		p.rules[option] = expr
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// withEvaluator applies opts first so WithHelpers reaches the evaluator
// that build constructs.
func withEvaluator(build func(...EvaluatorOption) Evaluator, rules map[string]string, opts []RuleOption) (*RuleProvider, error) {
	p, err := newRuleProvider(rules, opts)
	if err != nil {
		return nil, err
	}
	p.evaluator = build(WithProgramCache(NewProgramCache()), WithEvaluatorHelpers(p.helpers))
	if p.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return p, nil
}

// NewExprProvider evaluates rules with expr-lang/expr.
func NewExprProvider(rules map[string]string, opts ...RuleOption) (*RuleProvider, error) {
	return withEvaluator(NewExprEvaluator, rules, opts)
}

// NewCELProvider evaluates rules with cel-go.
func NewCELProvider(rules map[string]string, opts ...RuleOption) (*RuleProvider, error) {
	return withEvaluator(NewCELEvaluator, rules, opts)
}

// NewJSProvider evaluates rules with goja. It returns ErrNoEvaluator unless
// the binary is built with the js_eval tag.
func NewJSProvider(rules map[string]string, opts ...RuleOption) (*RuleProvider, error) {
	return withEvaluator(NewJSEvaluator, rules, opts)
}

// Default evaluates the rule bound to option. A rule that evaluates to nil
// yields a present null default.
func (p *RuleProvider) Default(ctx context.Context, option string) (any, bool, error) {
	expr, ok := p.rules[option]
	if !ok {
		if p.fallback != nil {
			return p.fallback.Default(ctx, option)
		}
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	env := Env{Option: option, Values: p.values, Metadata: p.metadata}
	start := time.Now()
	value, err := p.evaluator.Evaluate(env, expr)
	err = ruleError(p.evaluator.Engine(), option, expr, err)
	p.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   p.evaluator.Engine(),
		Expr:     expr,
		Option:   option,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, false, err
	}
	return codec.Normalize(value), true, nil
}
