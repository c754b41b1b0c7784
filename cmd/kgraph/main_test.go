package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with a config that needs neither Redis nor a ledger.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LEDGER_DSN", "")
	t.Setenv("METRICS_ENABLED", "false")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kgraph.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  mode: development\n  level: error\n"), 0o600))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath, "--env-file", filepath.Join(dir, "none.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCacheFlushWithoutRedis(t *testing.T) {
	out, err := run(t, "cache", "flush", "path:*")
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "kg:path:*", body["pattern"])
	assert.EqualValues(t, 0, body["deleted"])
}

func TestCacheFlushDefaultsToNamespace(t *testing.T) {
	out, err := run(t, "cache", "flush")
	require.NoError(t, err)
	assert.Contains(t, out, `"pattern": "kg:*"`)
}

func TestArgumentValidation(t *testing.T) {
	_, err := run(t, "query", "path", "only-one")
	require.Error(t, err)

	_, err = run(t, "ingest")
	require.Error(t, err)

	_, err = run(t, "cache", "flush", "a", "b")
	require.Error(t, err)
}

func TestBadConfigFails(t *testing.T) {
	t.Setenv("INGEST_CONCURRENCY", "0")
	_, err := run(t, "cache", "flush")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ingest.Concurrency")
}

func TestNamespaced(t *testing.T) {
	assert.Equal(t, "kg:stats", namespaced("kg", "stats"))
	assert.Equal(t, "kg:stats", namespaced("kg", "kg:stats"))
}

func TestNormalizeExtensions(t *testing.T) {
	assert.Equal(t, []string{".md", ".txt"}, normalizeExtensions([]string{"MD", " .txt", ""}))
}

func TestSubcommandsRegistered(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ingest", "query", "cache", "health"} {
		assert.True(t, names[want], want)
	}
}
