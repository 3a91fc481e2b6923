package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workorder-engine/internal/config"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigShowCreatesDefault(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "--data-dir", dir, "config", "show")
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	for _, k := range config.RequiredKeys {
		assert.Contains(t, doc, k)
	}
	assert.FileExists(t, filepath.Join(dir, "config.json"))
}

func TestConfigValidateReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")
	cfg := config.Default()
	cfg.MySQL.Port = 70000
	require.NoError(t, config.SaveAtomic(path, cfg))

	out, err := runCLI(t, "--config", path, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, out, "xampp_mysql.port")

	cfg.MySQL.Port = 3306
	require.NoError(t, config.SaveAtomic(path, cfg))
	out, err = runCLI(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestResolveRelativeToDataDir(t *testing.T) {
	o := &RootOptions{DataDir: filepath.Join("var", "engine")}

	assert.Equal(t, filepath.Join("var", "engine", "data", "logs.db"), o.resolve("data/logs.db"))
	abs := filepath.Join(string(os.PathSeparator), "srv", "logs.db")
	assert.Equal(t, abs, o.resolve(abs))
	assert.Equal(t, filepath.Join("var", "engine", "config.json"), o.configPath())
}

func TestServeFlagsDefaults(t *testing.T) {
	cmd := NewServeCommand(&RootOptions{})

	addr, err := cmd.Flags().GetString("addr")
	require.NoError(t, err)
	assert.Equal(t, ":5000", addr)

	auto, err := cmd.Flags().GetBool("auto-start")
	require.NoError(t, err)
	assert.False(t, auto)
}
