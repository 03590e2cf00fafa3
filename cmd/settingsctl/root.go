package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	autosettings "github.com/goliatone/go-autosettings"
	"github.com/goliatone/go-autosettings/internal/codec"
	"github.com/goliatone/go-autosettings/pkg/defaults"
	"github.com/goliatone/go-autosettings/pkg/notify"
	"github.com/goliatone/go-autosettings/pkg/store"
)

// Version is injected during build.
var Version = "dev"

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	storePath    string
	policyPath   string
	defaultsPath string
	rulesPath    string
	rulesEngine  string
	lang         string
	verbose      bool
	jsonOutput   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "settingsctl",
		Short: "Inspect and edit settings stores",
		Long: `settingsctl reads and writes the JSON document behind a file-backed settings store.

Values are resolved the way an options page resolves them: administrator
policy first, then the stored value, then the configured defaults.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.storePath, "store", "settings.json", "Path of the synced settings document")
	pf.StringVar(&flags.policyPath, "policy", "", "Administrator policy file (json, yaml or toml)")
	pf.StringVar(&flags.defaultsPath, "defaults", "", "Static defaults file (json, yaml or toml)")
	pf.StringVar(&flags.rulesPath, "rules", "", "Default rules file mapping options to expressions")
	pf.StringVar(&flags.rulesEngine, "engine", "expr", "Expression engine for --rules (expr, cel or js)")
	pf.StringVar(&flags.lang, "lang", "en", "Language of user facing messages")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log resolution details to stderr")
	pf.BoolVar(&flags.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(
		newGetCmd(flags),
		newSetCmd(flags),
		newDumpCmd(flags),
		newResetCmd(flags),
		newRestoreCmd(flags),
	)
	return root
}

func (f *rootFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (f *rootFlags) store() *store.FileStore {
	return store.NewFileStore(f.storePath)
}

func (f *rootFlags) policy() (*store.Policy, error) {
	if f.policyPath == "" {
		return store.NewPolicy(nil), nil
	}
	return store.LoadPolicy(f.policyPath)
}

func (f *rootFlags) catalog() (*notify.Catalog, error) {
	tag, err := language.Parse(f.lang)
	if err != nil {
		return nil, fmt.Errorf("invalid --lang %q: %w", f.lang, err)
	}
	return notify.NewCatalog(tag)
}

// provider builds the default provider from --defaults and --rules. Rules
// can call the builtin helpers and fall back to the static defaults. Neither
// flag means defaults are off.
func (f *rootFlags) provider() (defaults.Provider, error) {
	var static defaults.Provider
	if f.defaultsPath != "" {
		p, err := defaults.LoadStatic(f.defaultsPath)
		if err != nil {
			return nil, err
		}
		static = p
	}
	if f.rulesPath == "" {
		return static, nil
	}

	doc, err := codec.DecodeFile(f.rulesPath)
	if err != nil {
		return nil, err
	}
	rules := make(map[string]string, len(doc))
	for option, raw := range doc {
		expression, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("rule for %q must be a string, got %T", option, raw)
		}
		rules[option] = expression
	}

	opts := []defaults.RuleOption{defaults.WithHelpers(defaults.BuiltinHelpers())}
	if static != nil {
		opts = append(opts, defaults.WithFallback(static))
	}
	switch f.rulesEngine {
	case "expr":
		return defaults.NewExprProvider(rules, opts...)
	case "cel":
		return defaults.NewCELProvider(rules, opts...)
	case "js":
		return defaults.NewJSProvider(rules, opts...)
	default:
		return nil, fmt.Errorf("unknown --engine %q", f.rulesEngine)
	}
}

// settings builds a headless handle over the configured files.
func (f *rootFlags) settings(cmd *cobra.Command) (*autosettings.Settings, error) {
	policy, err := f.policy()
	if err != nil {
		return nil, err
	}
	provider, err := f.provider()
	if err != nil {
		return nil, err
	}
	catalog, err := f.catalog()
	if err != nil {
		return nil, err
	}
	logger := f.logger(cmd.ErrOrStderr())

	opts := []autosettings.Option{
		autosettings.WithLogger(logger),
		autosettings.WithTranslator(catalog),
		autosettings.WithNotifier(notify.NewLogNotifier(logger, catalog)),
	}
	if provider != nil {
		opts = append(opts, autosettings.WithDefaultProvider(provider))
	} else {
		opts = append(opts, autosettings.WithDefaultsDisabled())
	}
	return autosettings.New(nil, f.store(), policy, opts...), nil
}
