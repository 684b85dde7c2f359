package session_test

import (
	"testing"
	"time"

	"github.com/petasbytes/game-agent/internal/session"
	"github.com/petasbytes/game-agent/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TriggersEveryInterval(t *testing.T) {
	hist := memory.NewContext(100)
	sch := session.Scheduler{Interval: 30, History: hist}
	var st session.State

	var fired []int
	for turn := 1; turn <= 95; turn++ {
		st.Advance()
		hist.Append(memory.TurnRecord{Index: st.TurnCounter})
		if sch.ShouldSummarize(st) {
			fired = append(fired, st.TurnCounter)
			sch.OnSummaryProduced(&st, "summary", time.Now())
			assert.False(t, sch.ShouldSummarize(st), "must reset after fold at turn %d", turn)
		}
	}
	assert.Equal(t, []int{30, 60, 90}, fired)
	assert.Equal(t, 90, st.LastSummaryTurn)
}

func TestScheduler_InitialSummary(t *testing.T) {
	sch := session.Scheduler{Interval: 30, Initial: true}
	st := session.State{TurnCounter: 1}
	assert.True(t, sch.ShouldSummarize(st))
	assert.True(t, sch.IsInitial(st))

	sch.OnSummaryProduced(&st, "plan", time.Now())
	assert.Equal(t, 1, st.LastSummaryTurn)
	assert.False(t, sch.ShouldSummarize(st))

	st.TurnCounter = 30
	assert.False(t, sch.ShouldSummarize(st))
	st.TurnCounter = 31
	assert.True(t, sch.ShouldSummarize(st))
	assert.False(t, sch.IsInitial(st))
}

func TestScheduler_FirstPeriodicSummaryIsReview(t *testing.T) {
	sch := session.Scheduler{Interval: 30}
	st := session.State{TurnCounter: 30}
	assert.True(t, sch.ShouldSummarize(st))
	assert.False(t, sch.IsInitial(st))
}

func TestScheduler_EveryTurnWithoutInitialIsReview(t *testing.T) {
	sch := session.Scheduler{Interval: 1}
	st := session.State{TurnCounter: 1}
	assert.True(t, sch.ShouldSummarize(st))
	assert.False(t, sch.IsInitial(st))
}

func TestScheduler_DisabledInterval(t *testing.T) {
	sch := session.Scheduler{Interval: 0}
	assert.False(t, sch.ShouldSummarize(session.State{TurnCounter: 1000}))
}

func TestScheduler_FoldCompactsHistory(t *testing.T) {
	hist := memory.NewContext(10)
	sch := session.Scheduler{Interval: 3, History: hist}
	st := session.State{}
	for i := 0; i < 3; i++ {
		st.Advance()
		hist.Append(memory.TurnRecord{Index: st.TurnCounter})
	}
	require.True(t, sch.ShouldSummarize(st))
	assert.True(t, sch.OnSummaryProduced(&st, "three turns", time.Now()))

	w := hist.Window()
	require.Len(t, w, 1)
	assert.True(t, w[0].Summary)
	assert.Equal(t, 3, w[0].Index)
}

func TestState_Describe(t *testing.T) {
	got := session.State{TurnCounter: 4}.Describe()
	assert.Contains(t, got, "Game: Not identified")
	assert.Contains(t, got, "Current goal: Not set")
	assert.Contains(t, got, "Turn: 4")

	got = session.State{GameName: "Zelda", CurrentGoal: "find sword"}.Describe()
	assert.Contains(t, got, "Game: Zelda")
	assert.Contains(t, got, "Current goal: find sword")
}
