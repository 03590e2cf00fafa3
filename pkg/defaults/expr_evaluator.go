package defaults

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator executes default rules using github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	helpers  *Helpers
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	return &exprEvaluator{cache: cfg.cache, helpers: cfg.helpers}
}

func (e *exprEvaluator) Engine() string { return "expr" }

func (e *exprEvaluator) Evaluate(env Env, expression string) (any, error) {
	if expression == "" {
		return nil, ruleError("expr", env.Option, "", errEmptyRule)
	}
	env = env.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, ruleError("expr", env.Option, expression, err)
	}
	result, err := exprlang.Run(program, e.environment(env))
	if err != nil {
		return nil, ruleError("expr", env.Option, expression, err)
	}
	return result, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.helpers.names() {
		options = append(options, exprlang.Function(name, e.helperFunction(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *exprEvaluator) environment(env Env) map[string]any {
	bindings := env.bindings()
	if e.helpers != nil {
		bindings["call"] = func(name string, arguments ...any) (any, error) {
			return e.helpers.call(name, arguments...)
		}
	}
	return bindings
}

func (e *exprEvaluator) helperFunction(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.helpers.call(name, arguments...)
	}
}
