// Package emulator defines the control surface the agent uses to drive a game
// and a websocket client for an out-of-process emulator bridge.
package emulator

import (
	"context"
	"errors"
	"fmt"

	"github.com/petasbytes/game-agent/internal/notation"
)

// Controller is the emulator-control collaborator. Implementations are used
// by one goroutine at a time.
type Controller interface {
	// PressAndHold holds buttons for ticks ticks, then releases all of them.
	PressAndHold(ctx context.Context, buttons notation.Button, ticks int) error
	// AdvanceTick runs the emulator for one tick with no input.
	AdvanceTick(ctx context.Context) error
	CaptureFrame(ctx context.Context) (Frame, error)
	SaveState(ctx context.Context, path string) error
	LoadState(ctx context.Context, path string) error
}

// Frame is one captured screen, PNG-encoded.
type Frame struct {
	PNG []byte
}

// Empty reports whether the frame carries no image.
func (f Frame) Empty() bool { return len(f.PNG) == 0 }

// ErrClosed is returned by a Bridge after Close.
var ErrClosed = errors.New("emulator bridge closed")

// ControlError is a failure reported by the emulator itself (invalid button
// combination, bad state path) as opposed to a transport failure.
type ControlError struct {
	Op     string
	Reason string
}

func (e *ControlError) Error() string {
	return fmt.Sprintf("emulator %s: %s", e.Op, e.Reason)
}

// Run issues seq in order: waits advance the emulator, presses hold and
// release before the next action starts. It returns the number of actions
// fully executed alongside any error.
func Run(ctx context.Context, c Controller, seq notation.Sequence) (int, error) {
	for i, act := range seq {
		if act.IsWait() {
			for n := 0; n < act.Hold; n++ {
				if err := c.AdvanceTick(ctx); err != nil {
					return i, fmt.Errorf("action %d (%s): %w", i+1, act, err)
				}
			}
			continue
		}
		if err := c.PressAndHold(ctx, act.Buttons, act.Hold); err != nil {
			return i, fmt.Errorf("action %d (%s): %w", i+1, act, err)
		}
	}
	return len(seq), nil
}
