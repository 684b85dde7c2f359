package session

import (
	"time"

	"github.com/petasbytes/game-agent/memory"
)

// Scheduler decides when to request a summary and folds it into History.
type Scheduler struct {
	// Interval is the number of turns between summaries; <= 0 disables
	// periodic summaries.
	Interval int
	// Initial forces a summary after the first turn.
	Initial bool
	History *memory.Context
}

// ShouldSummarize reports whether a summary is due for st.
func (s Scheduler) ShouldSummarize(st State) bool {
	if s.Initial && st.TurnCounter == 1 && st.LastSummaryTurn == 0 {
		return true
	}
	if s.Interval <= 0 {
		return false
	}
	return st.TurnCounter-st.LastSummaryTurn >= s.Interval
}

// IsInitial reports whether the due summary plans the session rather than
// reviewing it. Only the requested initial summary after the first turn does.
func (s Scheduler) IsInitial(st State) bool {
	return s.Initial && st.TurnCounter <= 1 && st.LastSummaryTurn == 0
}

// OnSummaryProduced moves the summary boundary to the current turn and
// compacts History up to it. It reports whether History changed.
func (s Scheduler) OnSummaryProduced(st *State, text string, at time.Time) bool {
	st.LastSummaryTurn = st.TurnCounter
	if s.History == nil {
		return false
	}
	return s.History.Compact(st.LastSummaryTurn, text, at)
}
