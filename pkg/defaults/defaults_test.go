package defaults

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type fakeProgramCache struct {
	mu     sync.Mutex
	store  map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	value, ok := c.store[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

func (c *fakeProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = value
}

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, helpers *Helpers) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, helpers *Helpers) Evaluator {
			return NewExprEvaluator(WithProgramCache(cache), WithEvaluatorHelpers(helpers))
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, helpers *Helpers) Evaluator {
			return NewCELEvaluator(WithProgramCache(cache), WithEvaluatorHelpers(helpers))
		},
	},
}

func TestRegistryNotReadyUntilSet(t *testing.T) {
	registry := NewRegistry()
	if registry.Ready() {
		t.Fatalf("new registry should not be ready")
	}
	if err := registry.Verify(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady from Verify, got %v", err)
	}
	if _, _, err := registry.Get(context.Background(), "theme"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady from Get, got %v", err)
	}
}

func TestRegistryNilProviderDisablesDefaults(t *testing.T) {
	registry := NewRegistry()
	registry.Set(nil)

	if err := registry.Verify(); err != nil {
		t.Fatalf("disabled registry should verify, got %v", err)
	}
	if !registry.Disabled() {
		t.Fatalf("expected registry to report disabled")
	}
	value, ok, err := registry.Get(context.Background(), "theme")
	if err != nil || ok || value != nil {
		t.Fatalf("expected absent default, got value=%v ok=%v err=%v", value, ok, err)
	}

	registry.Unset()
	if registry.Ready() {
		t.Fatalf("unset registry should not be ready")
	}
}

func TestRegistryAsksProviderPerOption(t *testing.T) {
	var asked []string
	registry := NewRegistry()
	registry.Set(ProviderFunc(func(_ context.Context, option string) (any, bool, error) {
		asked = append(asked, option)
		if option == "theme" {
			return "dark", true, nil
		}
		return nil, false, nil
	}))

	value, ok, err := registry.Get(context.Background(), "theme")
	if err != nil || !ok || value != "dark" {
		t.Fatalf("expected dark, got value=%v ok=%v err=%v", value, ok, err)
	}
	if _, ok, _ := registry.Get(context.Background(), "fontSize"); ok {
		t.Fatalf("expected no default for fontSize")
	}
	if strings.Join(asked, ",") != "theme,fontSize" {
		t.Fatalf("expected one lookup per option, got %v", asked)
	}
}

func TestRegistryWrapsProviderFailure(t *testing.T) {
	base := errors.New("backend down")
	registry := NewRegistry()
	registry.Set(ProviderFunc(func(context.Context, string) (any, bool, error) {
		return nil, false, base
	}))

	_, _, err := registry.Get(context.Background(), "theme")
	if !errors.Is(err, base) {
		t.Fatalf("expected provider error to unwrap, got %v", err)
	}
	if !strings.Contains(err.Error(), `"theme"`) {
		t.Fatalf("expected option in error, got %q", err.Error())
	}
}

func TestStaticProviderClonesValues(t *testing.T) {
	provider := Static(map[string]any{"grid": map[string]any{"columns": float64(3)}})

	value, ok, err := provider.Default(context.Background(), "grid")
	if err != nil || !ok {
		t.Fatalf("expected grid default, got ok=%v err=%v", ok, err)
	}
	value.(map[string]any)["columns"] = float64(9)

	again, _, _ := provider.Default(context.Background(), "grid")
	if again.(map[string]any)["columns"] != float64(3) {
		t.Fatalf("static defaults must not be mutated through returned values")
	}
}

func TestRuleProvidersAcrossEvaluators(t *testing.T) {
	rules := map[string]string{
		"fontSize": `platform == "mobile" ? 12 : 14`,
		"theme":    `option == "theme" ? "dark" : "light"`,
	}
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			var events []EvaluatorLogEvent
			provider, err := NewRuleProvider(factory.new(nil, nil), rules,
				WithEnvValues(map[string]any{"platform": "mobile"}),
				WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
					events = append(events, event)
				})),
				WithFallback(Static(map[string]any{"proxy": ""})),
			)
			if err != nil {
				t.Fatalf("new provider: %v", err)
			}

			value, ok, err := provider.Default(context.Background(), "fontSize")
			if err != nil || !ok {
				t.Fatalf("fontSize: ok=%v err=%v", ok, err)
			}
			if value != float64(12) {
				t.Fatalf("expected numeric 12, got %#v", value)
			}

			value, _, err = provider.Default(context.Background(), "theme")
			if err != nil || value != "dark" {
				t.Fatalf("expected dark theme, got %#v err=%v", value, err)
			}

			if _, ok, _ := provider.Default(context.Background(), "proxy"); !ok {
				t.Fatalf("expected fallback default for proxy")
			}
			if _, ok, _ := provider.Default(context.Background(), "unknown"); ok {
				t.Fatalf("expected no default for unknown option")
			}

			if len(events) != 2 {
				t.Fatalf("expected 2 evaluation events, got %d", len(events))
			}
			if events[0].Engine != factory.name || events[0].Option != "fontSize" {
				t.Fatalf("unexpected log event %+v", events[0])
			}
		})
	}
}

func TestRuleProviderReportsFailingRule(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			provider, err := NewRuleProvider(factory.new(nil, nil), map[string]string{"theme": `1 +`})
			if err != nil {
				t.Fatalf("new provider: %v", err)
			}
			_, _, err = provider.Default(context.Background(), "theme")

			var ruleErr *RuleError
			if !errors.As(err, &ruleErr) {
				t.Fatalf("expected RuleError, got %T (%v)", err, err)
			}
			if ruleErr.Engine != factory.name || ruleErr.Option != "theme" || ruleErr.Rule != "1 +" {
				t.Fatalf("unexpected metadata %+v", ruleErr)
			}
			if !errors.Is(err, ErrRuleFailed) {
				t.Fatalf("expected ErrRuleFailed match, got %v", err)
			}
		})
	}
}

func TestRuleProviderHonoursCancellation(t *testing.T) {
	provider, err := NewExprProvider(map[string]string{"theme": `"dark"`})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := provider.Default(ctx, "theme"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEvaluatorProgramCache(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			cache := &fakeProgramCache{}
			evaluator := factory.new(cache, nil)
			env := Env{Option: "columns", Values: map[string]any{"width": 1200}}
			for i := 0; i < 3; i++ {
				if _, err := evaluator.Evaluate(env, `width > 1000`); err != nil {
					t.Fatalf("unexpected error on iteration %d: %v", i, err)
				}
			}
			if cache.misses != 1 || cache.hits != 2 {
				t.Fatalf("expected 1 miss and 2 hits, got misses=%d hits=%d", cache.misses, cache.hits)
			}
		})
	}
}

func TestCustomHelpersAcrossEvaluators(t *testing.T) {
	helpers := NewHelpers()
	if err := helpers.Register("equalsIgnoreCase", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errors.New("equalsIgnoreCase expects 2 args")
		}
		a, _ := args[0].(string)
		b, _ := args[1].(string)
		return strings.EqualFold(a, b), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, helpers)
			env := Env{Option: "theme", Values: map[string]any{"locale": "EN"}}
			rule := `call("equalsIgnoreCase", [locale, "en"])`
			if factory.name == "expr" {
				rule = `equalsIgnoreCase(locale, "en")`
			}
			got, err := evaluator.Evaluate(env, rule)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if got != true {
				t.Fatalf("expected true, got %#v", got)
			}
		})
	}
}

func TestHelperRegistrationRules(t *testing.T) {
	helpers := NewHelpers()
	noop := func(...any) (any, error) { return nil, nil }
	if err := helpers.Register("platformWidth", noop); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := map[string]struct {
		name string
		fn   Helper
	}{
		"duplicate":  {name: "platformWidth", fn: noop},
		"binding":    {name: "option", fn: noop},
		"call":       {name: "call", fn: noop},
		"identifier": {name: "font-size", fn: noop},
		"empty":      {name: "", fn: noop},
		"nil":        {name: "missing", fn: nil},
	}
	for label, tc := range cases {
		if err := helpers.Register(tc.name, tc.fn); !errors.Is(err, ErrInvalidHelper) {
			t.Fatalf("%s: expected ErrInvalidHelper, got %v", label, err)
		}
	}
}

func TestEvaluatorKeepsHelperSnapshot(t *testing.T) {
	helpers := NewHelpers()
	evaluator := NewExprEvaluator(WithEvaluatorHelpers(helpers))
	if err := helpers.Register("late", func(...any) (any, error) { return "late", nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := evaluator.Evaluate(Env{Option: "theme"}, `call("late")`); err == nil {
		t.Fatalf("expected helper registered after construction to be unknown")
	}
}

func TestRuleProvidersReceiveHelpers(t *testing.T) {
	cases := []struct {
		name  string
		new   func(map[string]string, ...RuleOption) (*RuleProvider, error)
		rules map[string]string
	}{
		{
			name: "expr",
			new:  NewExprProvider,
			rules: map[string]string{
				"fontSize": `clamp(number(requested), 8, 24)`,
				"theme":    `coalesce(preferred, "", "light")`,
			},
		},
		{
			name: "cel",
			new:  NewCELProvider,
			rules: map[string]string{
				"fontSize": `call("clamp", [call("number", [requested]), 8, 24])`,
				"theme":    `call("coalesce", [preferred, "", "light"])`,
			},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			provider, err := tc.new(tc.rules,
				WithHelpers(BuiltinHelpers()),
				WithEnvValues(map[string]any{"requested": "40", "preferred": ""}),
			)
			if err != nil {
				t.Fatalf("new provider: %v", err)
			}

			value, ok, err := provider.Default(context.Background(), "fontSize")
			if err != nil || !ok || value != float64(24) {
				t.Fatalf("expected clamped 24, got %#v ok=%v err=%v", value, ok, err)
			}
			value, _, err = provider.Default(context.Background(), "theme")
			if err != nil || value != "light" {
				t.Fatalf("expected light, got %#v err=%v", value, err)
			}
		})
	}
}

func TestRuleProviderWithoutHelpersRejectsCalls(t *testing.T) {
	provider, err := NewExprProvider(map[string]string{"fontSize": `call("clamp", 40, 8, 24)`})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, _, err := provider.Default(context.Background(), "fontSize"); !errors.Is(err, ErrRuleFailed) {
		t.Fatalf("expected ErrRuleFailed, got %v", err)
	}
}

func TestBuiltinHelpers(t *testing.T) {
	helpers := BuiltinHelpers()

	cases := []struct {
		name string
		args []any
		want any
	}{
		{name: "number", args: []any{" 12 "}, want: float64(12)},
		{name: "number", args: []any{"0x10"}, want: float64(16)},
		{name: "number", args: []any{true}, want: float64(1)},
		{name: "clamp", args: []any{3, 8, 24}, want: float64(8)},
		{name: "clamp", args: []any{"abc", 8, 24}, want: float64(8)},
		{name: "clamp", args: []any{16, 8, 24}, want: float64(16)},
		{name: "coalesce", args: []any{nil, "", "dark"}, want: "dark"},
		{name: "coalesce", args: []any{nil}, want: nil},
	}
	for _, tc := range cases {
		got, err := helpers.call(tc.name, tc.args...)
		if err != nil {
			t.Fatalf("%s%v: %v", tc.name, tc.args, err)
		}
		if got != tc.want {
			t.Fatalf("%s%v: expected %#v, got %#v", tc.name, tc.args, tc.want, got)
		}
	}

	if _, err := helpers.call("clamp", 1, 24, 8); err == nil {
		t.Fatalf("expected inverted bounds to fail")
	}
	if _, err := helpers.call("number"); err == nil {
		t.Fatalf("expected arity error")
	}
}

func TestNewJSProviderWithoutBuildTag(t *testing.T) {
	if JSAvailable() {
		t.Skip("built with js_eval")
	}
	if _, err := NewJSProvider(map[string]string{"theme": `"dark"`}); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}
