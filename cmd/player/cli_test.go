package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/game-agent/internal/config"
	"github.com/petasbytes/game-agent/internal/store"
	"github.com/petasbytes/game-agent/memory"
)

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCompile(t *testing.T) {
	stdout, _, err := executeCLI(t, "compile", "R2 A", "U3 UB")
	require.NoError(t, err)
	assert.Contains(t, stdout, "press Up+B for 1 tick(s)")
	assert.Contains(t, stdout, "4 actions, 7 ticks: R2 A U3 UB")
}

func TestCompile_JSON(t *testing.T) {
	stdout, _, err := executeCLI(t, "compile", "--json", "W5 S")
	require.NoError(t, err)
	var got []compiledAction
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Buttons)
	assert.Equal(t, 5, got[0].Hold)
	assert.Equal(t, []string{"Start"}, got[1].Buttons)
}

func TestCompile_ParseError(t *testing.T) {
	_, _, err := executeCLI(t, "compile", "A Z3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Z3")
}

func TestConfigInit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "player.toml")
	stdout, _, err := executeCLI(t, "config", "init", "--path", p)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+p)

	cfg, err := config.Load(p)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	_, _, err = executeCLI(t, "config", "init", "--path", p)
	assert.Error(t, err)
}

func TestHistoryListAndExport(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLAYER_STORAGE_DIR", dir)
	t.Setenv("PLAYER_LOG_LEVEL", "error")

	stdout, _, err := executeCLI(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No sessions recorded.")

	ctx := context.Background()
	db, err := store.NewSQLiteStore(filepath.Join(dir, "player.db"))
	require.NoError(t, err)
	sess, err := db.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, db.UpdateSession(ctx, sess.ID, "Tetris", ""))
	require.NoError(t, db.RecordTurn(ctx, sess.ID, memory.TurnRecord{Index: 1, Text: "rotate"}))
	require.NoError(t, db.RecordTurn(ctx, sess.ID, memory.TurnRecord{Index: 2, Text: "drop"}))
	require.NoError(t, db.Close())

	stdout, _, err = executeCLI(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, sess.ID)
	assert.Contains(t, stdout, "Tetris")

	stdout, _, err = executeCLI(t, "history", "export", sess.ID)
	require.NoError(t, err)
	var recs []memory.TurnRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "drop", recs[1].Text)

	out := filepath.Join(t.TempDir(), "export.json")
	_, _, err = executeCLI(t, "history", "export", sess.ID, "-o", out, "--limit", "1")
	require.NoError(t, err)
	saved, err := memory.LoadTranscript(out)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 2, saved[0].Index)

	_, _, err = executeCLI(t, "history", "export", "missing")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestNewLogger_WritesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "player.log")
	var stderr bytes.Buffer
	logger, closeLog, err := newLogger(config.LogConfig{Level: "info", Format: "json", File: p}, &stderr)
	require.NoError(t, err)
	logger.Info("hello", "turn", 3)
	require.NoError(t, closeLog())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"hello"`)
	assert.Equal(t, stderr.String(), string(b))
}

func TestPlay_RequiresValidConfig(t *testing.T) {
	t.Setenv("PLAYER_EMULATOR_URL", "http://nope")
	_, _, err := executeCLI(t, "play")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "emulator.url")
}
