package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsFromEnvironmentOnly(t *testing.T) {
	t.Setenv("CALLDISPATCH_BLAND_API_KEY", "sk-test")
	t.Setenv("PATHWAY_ID", "pw-legacy")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Bland.APIKey)
	assert.Equal(t, "pw-legacy", cfg.Bland.DefaultPathwayID)
	assert.Equal(t, "https://api.bland.ai", cfg.Bland.BaseURL)
	assert.Equal(t, "sequential", cfg.Dispatch.Mode)
	assert.Equal(t, 20*time.Second, cfg.Dispatch.PacingDelay)
	assert.False(t, cfg.Postgres.Enabled)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
bland:
  api_key: from-file
  default_pathway_id: pw-file
dispatch:
  mode: concurrent
  pacing_delay: 2s
  failure_cooldown: 5s
summary:
  goal: check stock
  questions:
    - ["Was the rifle in stock?", "string"]
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("CALLDISPATCH_DISPATCH_PACING_DELAY", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Bland.APIKey)
	assert.Equal(t, "pw-file", cfg.Bland.DefaultPathwayID)
	assert.Equal(t, "concurrent", cfg.Dispatch.Mode)
	assert.Equal(t, 3*time.Second, cfg.Dispatch.PacingDelay)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.FailureCooldown)
	assert.Equal(t, [][]string{{"Was the rifle in stock?", "string"}}, cfg.Summary.Questions)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("CALLDISPATCH_BLAND_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"missing key", Config{Dispatch: DispatchConfig{Mode: "sequential"}}, false},
		{"mock needs no key", Config{Bland: BlandConfig{Provider: "mock"}, Dispatch: DispatchConfig{Mode: "sequential"}}, true},
		{"bad mode", Config{Bland: BlandConfig{APIKey: "k"}, Dispatch: DispatchConfig{Mode: "parallel"}}, false},
		{"negative delay", Config{Bland: BlandConfig{APIKey: "k"}, Dispatch: DispatchConfig{Mode: "sequential", PacingDelay: -time.Second}}, false},
		{"valid", Config{Bland: BlandConfig{APIKey: "k"}, Dispatch: DispatchConfig{Mode: "concurrent"}}, true},
	}

	for _, tc := range cases {
		err := tc.cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
