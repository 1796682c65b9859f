package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/explore"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/testutil"
)

func TestLoad_NonExistentFile(t *testing.T) {
	testutil.SetupTestHome(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "/mcp/initialize", cfg.Server.InitializePath)
	assert.Equal(t, "/mcp/request", cfg.Server.RequestPath)
	assert.Equal(t, AuthNone, cfg.Auth.Mode)
	assert.Equal(t, 200, cfg.Explore.Rounds)
	assert.Equal(t, 1, cfg.Explore.Workers)
	assert.InDelta(t, 0.7, cfg.Explore.PredefinedBias, 1e-9)
	assert.Equal(t, explore.MetaTypes, cfg.Explore.MetaTypes)
	assert.Equal(t, "testMCP.md", cfg.Output.LogFile)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.BaseURL())
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	testutil.SetupTestHome(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_ValidConfig(t *testing.T) {
	testutil.SetupTestHome(t)

	testutil.WriteTestConfig(t, `
server:
  host: 1c.example.local
  port: 9090
  timeout: 5s
auth:
  mode: bearer
explore:
  rounds: 25
  workers: 4
  seed: 42
  name_masks: ["", "Склад"]
output:
  summary_file: out/summary.json
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "1c.example.local", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "http", cfg.Server.Scheme, "unset keys keep defaults")
	assert.Equal(t, AuthBearer, cfg.Auth.Mode)
	assert.Equal(t, 25, cfg.Explore.Rounds)
	assert.Equal(t, 4, cfg.Explore.Workers)
	assert.Equal(t, uint64(42), cfg.Explore.Seed)
	assert.Equal(t, []string{"", "Склад"}, cfg.Explore.NameMasks)
	assert.Equal(t, "out/summary.json", cfg.Output.SummaryFile)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	testutil.SetupTestHome(t)
	t.Setenv("MCP_HOST", "10.0.0.5")
	t.Setenv("MCP_PORT", "8443")
	t.Setenv("MCP_AUTH_MODE", "oauth2")
	t.Setenv("MCP_ACCESS_TOKEN", "secret")
	t.Setenv("MCP_EXPLORE_ROUNDS", "7")
	t.Setenv("MCP_RATE_RPS", "2.5")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Server.Host)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, AuthOAuth2, cfg.Auth.Mode)
	assert.Equal(t, "secret", cfg.Auth.AccessToken)
	assert.Equal(t, 7, cfg.Explore.Rounds)
	assert.InDelta(t, 2.5, cfg.Rate.RPS, 1e-9)
}

func TestLoad_FlagsBeatEnvAndFile(t *testing.T) {
	home := testutil.SetupTestHome(t)
	path := filepath.Join(home, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("explore:\n  rounds: 3\n  workers: 2\n"), 0o644))
	t.Setenv("MCP_EXPLORE_ROUNDS", "9")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.Int("rounds", 0, "")
	flags.Int("workers", 1, "")
	flags.String("host", "", "")
	require.NoError(t, flags.Parse([]string{"--rounds", "11"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 11, cfg.Explore.Rounds, "flag wins")
	assert.Equal(t, 2, cfg.Explore.Workers, "unchanged flag does not shadow the file")
	assert.Equal(t, "127.0.0.1", cfg.Server.Host, "unchanged empty flag does not shadow the default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative rounds", func(c *Config) { c.Explore.Rounds = -1 }, "explore.rounds"},
		{"zero workers", func(c *Config) { c.Explore.Workers = 0 }, "explore.workers"},
		{"bias above one", func(c *Config) { c.Explore.PredefinedBias = 1.5 }, "predefined_bias"},
		{"negative probability", func(c *Config) { c.Explore.PredefinedProbability = -0.1 }, "predefined_probability"},
		{"inverted max items", func(c *Config) { c.Explore.MaxItemsMin = 30 }, "max_items_min"},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "kerberos" }, "unknown auth mode"},
		{"vault without path", func(c *Config) { c.Auth.Mode = AuthVault }, "vault_path"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	require.NoError(t, Default().Validate())
	zero := Default()
	zero.Explore.Rounds = 0
	assert.NoError(t, zero.Validate(), "zero rounds is a valid no-op run")
}

func TestDriverConfig(t *testing.T) {
	cfg := Default()
	cfg.Explore.PredefinedProbability = 0.95
	dc := cfg.DriverConfig()

	want := explore.DefaultConfig()
	want.PredefinedProbability = 0.95
	assert.Equal(t, want, dc)
}

func TestSave_AtomicWrite(t *testing.T) {
	home := testutil.SetupTestHome(t)

	cfg := Default()
	cfg.Server.Host = "saved.example"
	cfg.Server.Timeout = 45 * time.Second
	cfg.Auth.AccessToken = "must-not-persist"
	require.NoError(t, Save(cfg))

	path := filepath.Join(home, ".config", "mcpfuzz", "config.yaml")
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should not exist after save")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "must-not-persist")

	var raw map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "45s", raw["server"]["timeout"])

	loaded, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "saved.example", loaded.Server.Host)
	assert.Equal(t, 45*time.Second, loaded.Server.Timeout)
	assert.Equal(t, cfg.Explore.MetaTypes, loaded.Explore.MetaTypes)
	assert.Empty(t, loaded.Auth.AccessToken)
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	require.NoError(t, SaveTo(Default(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
