package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/game-agent/internal/provider"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeTurnBased, cfg.Mode)
	assert.Equal(t, string(provider.DefaultModel), cfg.Action.Model)
	assert.Equal(t, cfg.ModelDefaults, cfg.Action, "action inherits every model default")
	assert.Equal(t, cfg.ModelDefaults, cfg.Summary.ModeConfig)
	assert.Equal(t, 30, cfg.Summary.Interval)
	assert.Equal(t, 10, cfg.History.MaxTurns)
	assert.Equal(t, 5*time.Second, cfg.Loop.AnalysisInterval)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, filepath.Join(".player", "player.db"), cfg.Storage.DatabasePath())
}

func TestLoad_FileOverridesAndInheritance(t *testing.T) {
	p := writeFile(t, `
mode = "continuous"

[model_defaults]
model = "base-model"
max_tokens = 8000
thinking = false

[action]
max_tokens = 4000

[summary]
model = "summary-model"
interval = 12
initial = true

[loop]
analysis_interval = "2s"

[retry]
initial_backoff = "250ms"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeContinuous, cfg.Mode)
	assert.Equal(t, "base-model", cfg.Action.Model)
	assert.Equal(t, int64(4000), cfg.Action.MaxTokens)
	assert.False(t, cfg.Action.Thinking)
	assert.Equal(t, "summary-model", cfg.Summary.Model)
	assert.Equal(t, int64(8000), cfg.Summary.MaxTokens)
	assert.Equal(t, 12, cfg.Summary.Interval)
	assert.True(t, cfg.Summary.Initial)
	assert.Equal(t, 2*time.Second, cfg.Loop.AnalysisInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialBackoff)

	rc := cfg.Runner()
	assert.True(t, rc.Continuous)
	assert.Equal(t, 12, rc.SummaryInterval)
	assert.Equal(t, cfg.Action, rc.Action)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeFile(t, `
[action]
model = "from-file"
`)
	t.Setenv("PLAYER_ACTION_MODEL", "from-env")
	t.Setenv("PLAYER_SUMMARY_MODEL", "summary-env")
	t.Setenv("PLAYER_HISTORY_MAX_TURNS", "4")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Action.Model)
	assert.Equal(t, "summary-env", cfg.Summary.Model)
	assert.Equal(t, 4, cfg.History.MaxTurns)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Mode = "fast"
	cfg.Action.Model = ""
	cfg.Summary.ThinkingBudget = 100
	cfg.History.MaxTurns = 0
	cfg.Emulator.URL = "http://localhost"
	cfg.Log.Format = "xml"

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"mode", "action.model", "summary.thinking_budget", "history.max_turns", "emulator.url", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", l.String())
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	p := filepath.Join(t.TempDir(), "conf", FileName)
	require.NoError(t, WriteDefault(p, false))
	assert.Error(t, WriteDefault(p, false), "existing file is kept")
	require.NoError(t, WriteDefault(p, true))

	fromFile, err := Load(p)
	require.NoError(t, err)
	defaults, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaults, fromFile)
}
