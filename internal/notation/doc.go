// Package notation compiles the compact button notation used by the
// send_inputs tool into an ordered sequence of emulator actions.
//
// Grammar (tokens separated by whitespace):
//   - wait:  W | W<n>            hold nothing for n ticks (default 1)
//   - press: <symbols>[<n>]      press every symbol at once for n ticks (default 1)
//
// Symbols: U (up), D (down), L (left), R (right), A, B, S (start), X (select).
//
// The grammar is the model-facing contract of send_inputs; changing it is a
// breaking change for the tool schema. Compile is pure and never touches the
// emulator.
package notation
