//go:build js_eval

package defaults

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache    ProgramCache
	helpers  *Helpers
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	return &jsEvaluator{cache: cfg.cache, helpers: cfg.helpers}
}

func (e *jsEvaluator) Engine() string { return "js" }

func (e *jsEvaluator) Evaluate(env Env, expression string) (any, error) {
	if expression == "" {
		return nil, ruleError("js", env.Option, "", errEmptyRule)
	}
	env = env.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, ruleError("js", env.Option, expression, err)
	}
	vm := goja.New()
	e.inject(vm, env)
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, ruleError("js", env.Option, expression, err)
	}
	if goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	return value.Export(), nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEvaluator) inject(vm *goja.Runtime, env Env) {
	for key, value := range env.bindings() {
		_ = vm.Set(key, value)
	}
	if e.helpers == nil {
		return
	}
	_ = vm.Set("call", func(name string, arguments ...any) (any, error) {
		return e.helpers.call(name, arguments...)
	})
	for _, name := range e.helpers.names() {
		fn := name
		_ = vm.Set(fn, func(arguments ...any) (any, error) {
			return e.helpers.call(fn, arguments...)
		})
	}
}

// JSAvailable reports whether the binary was built with the js_eval tag.
func JSAvailable() bool {
	return true
}
