// Package metrics derives cheap, local features from turns for telemetry.
package metrics

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/game-agent/internal/notation"
	"github.com/petasbytes/game-agent/memory"
)

// Features holds basic local text features derived from an input string.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountFeatures computes and returns byte, rune, word, and line counts for the input string.
func CountFeatures(s string) Features {
	b := len(s)
	r := utf8.RuneCountInString(s)
	w := countWords(s)
	l := countLines(s)
	return Features{Bytes: b, Runes: r, Words: w, Lines: l}
}

// countWords counts words split on Unicode whitespace.
func countWords(s string) int {
	return len(strings.Fields(s))
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}

// TurnFeatures summarizes one turn record.
type TurnFeatures struct {
	Text      Features
	Reasoning Features
	ToolCalls int
	// ToolErrors counts invocations whose result was an error.
	ToolErrors int
	// InputTicks is the total hold of successful send_inputs calls.
	InputTicks int
}

// ForTurn computes TurnFeatures for rec.
func ForTurn(rec memory.TurnRecord) TurnFeatures {
	var thoughts []string
	for _, th := range rec.Reasoning {
		thoughts = append(thoughts, th.Text)
	}
	f := TurnFeatures{
		Text:      CountFeatures(rec.Text),
		Reasoning: CountFeatures(strings.Join(thoughts, "\n")),
		ToolCalls: len(rec.Invocations),
	}
	for _, inv := range rec.Invocations {
		if inv.IsError {
			f.ToolErrors++
			continue
		}
		if inv.Name == "send_inputs" {
			f.InputTicks += inputTicks(inv.Input)
		}
	}
	return f
}

func inputTicks(raw json.RawMessage) int {
	var in struct {
		Inputs string `json:"inputs"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return 0
	}
	seq, err := notation.Compile(in.Inputs)
	if err != nil {
		return 0
	}
	return seq.TotalTicks()
}
