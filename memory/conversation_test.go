package memory_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/petasbytes/game-agent/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(i int) memory.TurnRecord {
	return memory.TurnRecord{Index: i, Text: "turn", Timestamp: time.Unix(int64(i), 0).UTC()}
}

func indexes(recs []memory.TurnRecord) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.Index
	}
	return out
}

func TestContext_EvictsOldestLive(t *testing.T) {
	c := memory.NewContext(3)
	for i := 1; i <= 5; i++ {
		c.Append(rec(i))
		assert.LessOrEqual(t, c.Len(), 3)
	}
	assert.Equal(t, []int{3, 4, 5}, indexes(c.Window()))
}

func TestContext_SummaryIsPinned(t *testing.T) {
	c := memory.NewContext(2)
	for i := 1; i <= 3; i++ {
		c.Append(rec(i))
	}
	require.True(t, c.Compact(3, "so far", time.Now()))

	for i := 4; i <= 7; i++ {
		c.Append(rec(i))
	}
	w := c.Window()
	require.Len(t, w, 3) // summary + 2 live
	assert.True(t, w[0].Summary)
	assert.Equal(t, 3, w[0].Index)
	assert.Equal(t, []int{3, 6, 7}, indexes(w))
}

func TestContext_CompactKeepsNewerRecords(t *testing.T) {
	c := memory.NewContext(10)
	for i := 1; i <= 6; i++ {
		c.Append(rec(i))
	}
	require.True(t, c.Compact(4, "turns 1-4", time.Now()))

	w := c.Window()
	require.Len(t, w, 3)
	assert.True(t, w[0].Summary)
	assert.Equal(t, "turns 1-4", w[0].Text)
	assert.Equal(t, []int{4, 5, 6}, indexes(w))
	for _, r := range w[1:] {
		assert.False(t, r.Summary)
		assert.Greater(t, r.Index, 4)
	}

	s, ok := c.Summary()
	require.True(t, ok)
	assert.Equal(t, 4, s.Index)
}

func TestContext_CompactIdempotent(t *testing.T) {
	c := memory.NewContext(10)
	for i := 1; i <= 3; i++ {
		c.Append(rec(i))
	}
	require.True(t, c.Compact(3, "first", time.Now()))
	before := c.Window()

	assert.False(t, c.Compact(3, "first", time.Now()))
	assert.Equal(t, before, c.Window())
}

func TestContext_CompactReplacesOlderSummary(t *testing.T) {
	c := memory.NewContext(10)
	c.Append(rec(1))
	c.Append(rec(2))
	require.True(t, c.Compact(2, "old", time.Now()))
	c.Append(rec(3))
	c.Append(rec(4))

	require.True(t, c.Compact(4, "new", time.Now()))
	w := c.Window()
	require.Len(t, w, 1)
	assert.Equal(t, "new", w[0].Text)
	assert.Equal(t, 4, w[0].Index)
}

func TestContext_CompactEmptyIsNoop(t *testing.T) {
	c := memory.NewContext(3)
	assert.False(t, c.Compact(5, "nothing", time.Now()))
	assert.Equal(t, 0, c.Len())
}

func TestTranscript_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "transcript.json")

	in := []memory.TurnRecord{
		{Index: 1, Text: "hello", Timestamp: time.Unix(10, 0).UTC(), Invocations: []memory.ToolInvocation{
			{ID: "t1", Name: "send_inputs", Input: []byte(`{"inputs":"A"}`), Output: "ok"},
		}},
		{Index: 2, Text: "summary", Summary: true, Timestamp: time.Unix(20, 0).UTC()},
	}
	require.NoError(t, memory.SaveTranscript(p, in))

	out, err := memory.LoadTranscript(p)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Raw inputs are re-indented on save.
	assert.JSONEq(t, string(in[0].Invocations[0].Input), string(out[0].Invocations[0].Input))
	in[0].Invocations[0].Input = nil
	out[0].Invocations[0].Input = nil
	assert.Equal(t, in, out)
}

func TestTranscript_LoadMissing_ReturnsNil(t *testing.T) {
	p := filepath.Join(t.TempDir(), "does-not-exist.json")
	recs, err := memory.LoadTranscript(p)
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestTranscript_LoadInvalidJSON_ReturnsError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(p, []byte("{oops"), 0o644))
	_, err := memory.LoadTranscript(p)
	assert.Error(t, err)
}
