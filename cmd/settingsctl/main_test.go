package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autosettings "github.com/goliatone/go-autosettings"
	"github.com/goliatone/go-autosettings/pkg/resolve"
	"github.com/goliatone/go-autosettings/pkg/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readStore(t *testing.T, path string) map[string]any {
	t.Helper()
	values, err := store.NewFileStore(path).Get(context.Background())
	require.NoError(t, err)
	return values
}

func TestSetAndGet(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "settings.json")

	_, err := run(t, "--store", storePath, "set", "fontSize", "14")
	require.NoError(t, err)
	_, err = run(t, "--store", storePath, "set", "theme", "dark")
	require.NoError(t, err)
	_, err = run(t, "--store", storePath, "set", "--group", "display", "dense", "true")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"fontSize": float64(14),
		"theme":    "dark",
		"display":  map[string]any{"dense": true},
	}, readStore(t, storePath))

	out, err := run(t, "--store", storePath, "get", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	out, err = run(t, "--store", storePath, "--json", "get", "--group", "display", "dense")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestGetFallsBackToDefaultsAndRules(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "settings.json")
	defaultsPath := writeFile(t, dir, "defaults.yaml", "theme: light\nfontSize: 12\n")
	rulesPath := writeFile(t, dir, "rules.json", `{"fontSize": "10 + 4"}`)

	out, err := run(t, "--store", storePath, "--defaults", defaultsPath, "get", "theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", out)

	out, err = run(t, "--store", storePath, "--defaults", defaultsPath, "--rules", rulesPath, "get", "fontSize")
	require.NoError(t, err)
	assert.Equal(t, "14\n", out)

	_, err = run(t, "--store", storePath, "get", "theme")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRulesCanCallBuiltinHelpers(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "settings.json")
	rulesPath := writeFile(t, dir, "rules.yaml", "fontSize: 'clamp(number(\"40\"), 8, 24)'\n")

	out, err := run(t, "--store", storePath, "--rules", rulesPath, "get", "fontSize")
	require.NoError(t, err)
	assert.Equal(t, "24\n", out)
}

func TestGetTraceReportsManagedWinner(t *testing.T) {
	dir := t.TempDir()
	storePath := writeFile(t, dir, "settings.json", `{"proxy": "direct"}`)
	policyPath := writeFile(t, dir, "policy.toml", "proxy = \"http://proxy.internal\"\n")

	out, err := run(t, "--store", storePath, "--policy", policyPath, "--json", "get", "--trace", "proxy")
	require.NoError(t, err)
	trace, err := resolve.TraceFromJSON([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, autosettings.LayerManaged, trace.Winner)
	assert.Equal(t, "http://proxy.internal", trace.Value)

	out, err = run(t, "--store", storePath, "--policy", policyPath, "get", "--trace", "proxy")
	require.NoError(t, err)
	assert.Contains(t, out, "LAYER")
	assert.Contains(t, out, "winner")
}

func TestSetRefusesManagedOption(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "settings.json")
	policyPath := writeFile(t, dir, "policy.json", `{"proxy": "http://proxy.internal"}`)

	_, err := run(t, "--store", storePath, "--policy", policyPath, "set", "proxy", "direct")
	assert.ErrorIs(t, err, autosettings.ErrOptionManaged)
	assert.Empty(t, readStore(t, storePath))
}

func TestResetAndRestore(t *testing.T) {
	dir := t.TempDir()
	storePath := writeFile(t, dir, "settings.json", `{"theme": "blue", "display": {"columns": 3}}`)
	before := readStore(t, storePath)
	backup := filepath.Join(dir, "backup.json")

	out, err := run(t, "--store", storePath, "reset", "--backup", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "All options were reset to their defaults.")
	assert.Empty(t, readStore(t, storePath))

	out, err = run(t, "--store", storePath, "restore", backup)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "restored snapshot "))
	assert.Equal(t, before, readStore(t, storePath))
}

func TestResetUsesTranslatedMessageAndDefaultBackup(t *testing.T) {
	dir := t.TempDir()
	storePath := writeFile(t, dir, "settings.json", `{"theme": "blue"}`)

	out, err := run(t, "--store", storePath, "--lang", "de", "--json", "reset")
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	backup, _ := result["backup"].(string)
	assert.Equal(t, defaultBackupPath(storePath, result["snapshot"].(string)), backup)
	assert.FileExists(t, backup)

	out, err = run(t, "--store", storePath, "--lang", "de", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Alle Einstellungen wurden zurückgesetzt.")
}

func TestRestoreRejectsBadBackup(t *testing.T) {
	dir := t.TempDir()
	backup := writeFile(t, dir, "backup.json", `{"values": {}}`)

	_, err := run(t, "--store", filepath.Join(dir, "settings.json"), "restore", backup)
	assert.ErrorContains(t, err, "missing snapshot id")
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	storePath := writeFile(t, dir, "settings.json", `{"theme": "blue", "fontSize": 12}`)

	out, err := run(t, "--store", storePath, "dump")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "fontSize"))
	assert.True(t, strings.HasSuffix(lines[1], "blue"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, float64(3), parseValue("3"))
	assert.Nil(t, parseValue("null"))
	assert.Equal(t, "dark mode", parseValue("dark mode"))
	assert.Equal(t, map[string]any{"a": float64(1)}, parseValue(`{"a":1}`))
}
