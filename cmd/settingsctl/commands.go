package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	autosettings "github.com/goliatone/go-autosettings"
	"github.com/goliatone/go-autosettings/internal/codec"
	"github.com/goliatone/go-autosettings/internal/layering"
	"github.com/goliatone/go-autosettings/pkg/dom"
	"github.com/goliatone/go-autosettings/pkg/notify"
	"github.com/goliatone/go-autosettings/pkg/resolve"
	"github.com/goliatone/go-autosettings/pkg/store"
)

func newGetCmd(flags *rootFlags) *cobra.Command {
	var group string
	var trace bool
	cmd := &cobra.Command{
		Use:   "get <option>",
		Short: "Print the effective value of an option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.settings(cmd)
			if err != nil {
				return err
			}
			t, err := s.Explain(cmd.Context(), args[0], group)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if trace {
				return writeTrace(out, t, flags.jsonOutput)
			}
			if t.Winner == resolve.LayerHTML {
				return fmt.Errorf("%w: %q has no value outside the page markup", store.ErrNotFound, args[0])
			}
			if flags.jsonOutput {
				return writeJSON(out, t.Value)
			}
			fmt.Fprintln(out, dom.FormatValue(t.Value))
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "Option group the option belongs to")
	cmd.Flags().BoolVar(&trace, "trace", false, "Show what every layer holds for the option")
	return cmd
}

func writeTrace(w io.Writer, t resolve.Trace, asJSON bool) error {
	if asJSON {
		payload, err := t.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LAYER\tKEY\tFOUND\tVALUE")
	for _, layer := range t.Layers {
		value := "-"
		if layer.Found {
			value = dom.FormatValue(layer.Value)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", layer.Layer, layer.Key, layer.Found, value)
	}
	fmt.Fprintf(tw, "winner\t%s\t\t%s\n", t.Winner, dom.FormatValue(t.Value))
	return tw.Flush()
}

func newSetCmd(flags *rootFlags) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "set <option> <value>",
		Short: "Store a value for an option",
		Long: `Store a value for an option. The value is parsed as JSON when possible,
so "true", "3" and "null" are stored typed; anything else is stored as a string.
Options held by administrator policy cannot be set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			option, value := args[0], parseValue(args[1])
			key := option
			if group != "" {
				key = group
			}

			policy, err := flags.policy()
			if err != nil {
				return err
			}
			managed, err := policy.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !store.IsEmpty(managed) {
				return &autosettings.OptionError{Op: "set", Option: option, Err: autosettings.ErrOptionManaged}
			}

			synced := flags.store()
			if group == "" {
				return synced.Set(cmd.Context(), map[string]any{option: value})
			}
			current, err := synced.Get(cmd.Context(), group)
			if err != nil {
				return err
			}
			composite, _ := layering.Composite(current[group])
			composite = layering.CloneMap(composite)
			if composite == nil {
				composite = map[string]any{}
			}
			composite[option] = value
			return synced.Set(cmd.Context(), map[string]any{group: composite})
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "Store the value inside this option group")
	return cmd
}

// parseValue decodes raw as JSON, falling back to the literal string.
func parseValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return codec.Normalize(value)
}

func newDumpCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every stored value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := flags.store().Get(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				return writeJSON(out, values)
			}
			keys := make([]string, 0, len(values))
			for key := range values {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, key := range keys {
				fmt.Fprintf(tw, "%s\t%s\n", key, dom.FormatValue(values[key]))
			}
			return tw.Flush()
		},
	}
}

func newResetCmd(flags *rootFlags) *cobra.Command {
	var backup string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the store, keeping a backup that restore can bring back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := flags.catalog()
			if err != nil {
				return err
			}
			synced := flags.store()
			snap, err := store.TakeSnapshot(cmd.Context(), synced)
			if err != nil {
				return err
			}
			if backup == "" {
				backup = defaultBackupPath(synced.Path(), snap.ID)
			}
			if err := writeSnapshot(backup, snap); err != nil {
				return err
			}
			if err := synced.Clear(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), catalog.Translate(notify.MsgResettingOptionsFailed))
				return err
			}

			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				return writeJSON(out, map[string]any{"snapshot": snap.ID, "backup": backup, "keys": len(snap.Values)})
			}
			fmt.Fprintln(out, catalog.Translate(notify.MsgResettingOptionsWorked))
			fmt.Fprintf(out, "snapshot %s saved to %s\n", snap.ID, backup)
			return nil
		},
	}
	cmd.Flags().StringVar(&backup, "backup", "", "Where to write the backup (default <store>.<snapshot>.bak.json)")
	return cmd
}

func newRestoreCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace the store with a backup written by reset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			if err := store.Restore(cmd.Context(), flags.store(), snap); err != nil {
				catalog, cerr := flags.catalog()
				if cerr == nil {
					fmt.Fprintln(cmd.ErrOrStderr(), catalog.Translate(notify.MsgCouldNotUndoAction))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored snapshot %s (%d keys)\n", snap.ID, len(snap.Values))
			return nil
		},
	}
}

func defaultBackupPath(storePath, id string) string {
	return strings.TrimSuffix(storePath, ".json") + "." + id + ".bak.json"
}

func writeSnapshot(path string, snap store.Snapshot) error {
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func readSnapshot(path string) (store.Snapshot, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return store.Snapshot{}, err
	}
	var snap store.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return store.Snapshot{}, fmt.Errorf("read backup %s: %w", path, err)
	}
	if snap.ID == "" {
		return store.Snapshot{}, errors.New("read backup " + path + ": missing snapshot id")
	}
	snap.Values, _ = codec.Normalize(snap.Values).(map[string]any)
	return snap, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
