package notation

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is one step of a compiled sequence: hold Buttons for Hold ticks, then
// release. An Action with ButtonNone is a wait.
type Action struct {
	Buttons Button `json:"buttons"`
	Hold    int    `json:"hold"`
}

// IsWait reports whether the action presses nothing.
func (a Action) IsWait() bool { return a.Buttons == ButtonNone }

// String renders the action in canonical notation, omitting a hold of 1.
func (a Action) String() string {
	if a.Hold == 1 {
		return a.Buttons.Symbols()
	}
	return a.Buttons.Symbols() + strconv.Itoa(a.Hold)
}

// Sequence is the ordered output of Compile.
type Sequence []Action

// TotalTicks is the number of ticks the sequence takes to play back.
func (s Sequence) TotalTicks() int {
	n := 0
	for _, a := range s {
		n += a.Hold
	}
	return n
}

// String renders the sequence in canonical notation.
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, a := range s {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

// ParseError names the offending token and its 1-based position. Position is
// 0 when the input as a whole is rejected.
type ParseError struct {
	Token    string
	Position int
	Reason   string
}

func (e *ParseError) Error() string {
	if e.Position == 0 {
		return "notation: " + e.Reason
	}
	return fmt.Sprintf("notation: token %d %q: %s", e.Position, e.Token, e.Reason)
}

// Compile turns a notation string into a Sequence with one Action per token,
// in input order.
func Compile(notation string) (Sequence, error) {
	tokens := strings.Fields(notation)
	if len(tokens) == 0 {
		return nil, &ParseError{Reason: "empty input; expected at least one token"}
	}
	seq := make(Sequence, 0, len(tokens))
	for i, tok := range tokens {
		a, reason := compileToken(tok)
		if reason != "" {
			return nil, &ParseError{Token: tok, Position: i + 1, Reason: reason}
		}
		seq = append(seq, a)
	}
	return seq, nil
}

// compileToken returns a non-empty reason when tok is malformed.
func compileToken(tok string) (Action, string) {
	if tok == "" {
		return Action{}, "empty token"
	}

	// Digits bind only as a trailing suffix: take the longest digit run from the right.
	cut := len(tok)
	for cut > 0 && isDigit(tok[cut-1]) {
		cut--
	}
	prefix, digits := tok[:cut], tok[cut:]
	if prefix == "" {
		return Action{}, "missing button symbol before hold count"
	}

	hold := 1
	if digits != "" {
		n, err := strconv.Atoi(digits)
		if err != nil {
			return Action{}, fmt.Sprintf("hold count %q out of range", digits)
		}
		if n <= 0 {
			return Action{}, "hold count must be at least 1"
		}
		hold = n
	}

	if prefix == "W" {
		return Action{Buttons: ButtonNone, Hold: hold}, ""
	}

	var set Button
	for j := 0; j < len(prefix); j++ {
		c := prefix[j]
		switch {
		case isDigit(c):
			return Action{}, fmt.Sprintf("unexpected %q after hold count", prefix[j:])
		case c == 'W':
			return Action{}, "wait W cannot be combined with buttons"
		}
		b, ok := buttonForSymbol(c)
		if !ok {
			return Action{}, fmt.Sprintf("unknown button symbol %q", string(c))
		}
		if set.Has(b) {
			return Action{}, fmt.Sprintf("button %q repeated within one action", string(c))
		}
		set |= b
	}
	return Action{Buttons: set, Hold: hold}, ""
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
