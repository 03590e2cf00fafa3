package defaults

import (
	"reflect"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	helpers  *Helpers
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	return &celEvaluator{cache: cfg.cache, helpers: cfg.helpers}
}

func (e *celEvaluator) Engine() string { return "cel" }

func (e *celEvaluator) Evaluate(env Env, expression string) (any, error) {
	if expression == "" {
		return nil, ruleError("cel", env.Option, "", errEmptyRule)
	}
	env = env.withDefaults()
	program, err := e.loadOrCompile(expression, env.Values)
	if err != nil {
		return nil, ruleError("cel", env.Option, expression, err)
	}
	out, _, err := program.program.Eval(e.activation(env))
	if err != nil {
		return nil, ruleError("cel", env.Option, expression, err)
	}
	return celNative(out)
}

// loadOrCompile caches per expression and declared variable set, since CEL
// programs are type-checked against their declarations.
func (e *celEvaluator) loadOrCompile(expression string, values map[string]any) (*celProgram, error) {
	key := celCacheKey(expression, values)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(values)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{env: env, program: prg}
	if e.cache != nil {
		e.cache.Set(key, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(values map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("option", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("metadata", celgo.DynType),
	}
	if e.helpers != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.BinaryBinding(e.callBinding()),
		)))
	}
	for key := range values {
		switch key {
		case "option", "now", "metadata":
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(env Env) map[string]any {
	return env.bindings()
}

func (e *celEvaluator) callBinding() functions.BinaryOp {
	return func(nameVal, argsVal ref.Val) ref.Val {
		name, ok := nameVal.Value().(string)
		if !ok {
			return types.NewErr("defaults: call name must be string")
		}
		var args []any
		if list, err := argsVal.ConvertToNative(reflect.TypeOf([]any{})); err == nil {
			args, _ = list.([]any)
		}
		result, err := e.helpers.call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

var (
	celMapType  = reflect.TypeOf(map[string]any{})
	celListType = reflect.TypeOf([]any{})
)

func celNative(out ref.Val) (any, error) {
	switch out.Type() {
	case types.NullType:
		return nil, nil
	case types.MapType:
		return out.ConvertToNative(celMapType)
	case types.ListType:
		return out.ConvertToNative(celListType)
	default:
		return out.Value(), nil
	}
}

func celCacheKey(expression string, values map[string]any) string {
	if len(values) == 0 {
		return expression
	}
	names := make([]string, 0, len(values))
	for key := range values {
		names = append(names, key)
	}
	sort.Strings(names)
	return expression + "\x00" + strings.Join(names, ",")
}
