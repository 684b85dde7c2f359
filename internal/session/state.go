// Package session holds the mutable per-run state of a play session and the
// scheduler that decides when the history is folded into a summary.
package session

import (
	"fmt"
	"strings"
)

// State is the only runtime state the turn loop mutates. Configuration lives
// elsewhere and is never written through State.
type State struct {
	GameName        string `json:"game_name,omitempty"`
	CurrentGoal     string `json:"current_goal,omitempty"`
	TurnCounter     int    `json:"turn_counter"`
	LastSummaryTurn int    `json:"last_summary_turn"`
}

// Describe renders the state for the prompt.
func (s State) Describe() string {
	game := s.GameName
	if game == "" {
		game = "Not identified"
	}
	goal := s.CurrentGoal
	if goal == "" {
		goal = "Not set"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Game: %s\n", game)
	fmt.Fprintf(&sb, "Current goal: %s\n", goal)
	fmt.Fprintf(&sb, "Turn: %d\n", s.TurnCounter)
	return sb.String()
}

// Advance records a completed turn.
func (s *State) Advance() { s.TurnCounter++ }
