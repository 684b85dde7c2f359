package notation

import "strings"

// Button is a set of Game Boy buttons held together. The zero value is
// ButtonNone, which the emulator treats as a wait.
type Button uint16

const (
	ButtonUp Button = 1 << iota
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonA
	ButtonB
	ButtonStart
	ButtonSelect

	ButtonNone Button = 0
)

// symbolOrder fixes the canonical rendering order of a button set.
var symbolOrder = []struct {
	sym    byte
	button Button
	name   string
}{
	{'U', ButtonUp, "Up"},
	{'D', ButtonDown, "Down"},
	{'L', ButtonLeft, "Left"},
	{'R', ButtonRight, "Right"},
	{'A', ButtonA, "A"},
	{'B', ButtonB, "B"},
	{'S', ButtonStart, "Start"},
	{'X', ButtonSelect, "Select"},
}

// buttonForSymbol maps a single notation symbol to its button.
func buttonForSymbol(c byte) (Button, bool) {
	for _, s := range symbolOrder {
		if s.sym == c {
			return s.button, true
		}
	}
	return ButtonNone, false
}

// Has reports whether every button in o is part of b.
func (b Button) Has(o Button) bool { return b&o == o }

// Symbols renders the set in notation form, e.g. "UB". ButtonNone renders as "W".
func (b Button) Symbols() string {
	if b == ButtonNone {
		return "W"
	}
	var sb strings.Builder
	for _, s := range symbolOrder {
		if b.Has(s.button) {
			sb.WriteByte(s.sym)
		}
	}
	return sb.String()
}

// Names lists the buttons in the set in canonical order.
func (b Button) Names() []string {
	var out []string
	for _, s := range symbolOrder {
		if b.Has(s.button) {
			out = append(out, s.name)
		}
	}
	return out
}

func (b Button) String() string {
	if b == ButtonNone {
		return "None"
	}
	return strings.Join(b.Names(), "+")
}

// ParseButtonName is the inverse of Names for a single button, used by
// transports that carry button names rather than bit sets.
func ParseButtonName(name string) (Button, bool) {
	for _, s := range symbolOrder {
		if strings.EqualFold(s.name, name) {
			return s.button, true
		}
	}
	return ButtonNone, false
}
