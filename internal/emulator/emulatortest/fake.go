// Package emulatortest provides an in-memory emulator.Controller for tests.
package emulatortest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"

	"github.com/petasbytes/game-agent/internal/emulator"
	"github.com/petasbytes/game-agent/internal/notation"
)

// Press is one recorded PressAndHold call.
type Press struct {
	Buttons notation.Button
	Ticks   int
}

// Fake records every call. It is not safe for concurrent use.
type Fake struct {
	Presses []Press
	Ticks   int
	Frames  int
	Saved   []string
	Loaded  []string

	// FailPress, when it returns a non-nil error, fails the matching press.
	FailPress func(notation.Button) error
	// CaptureErr fails every CaptureFrame call.
	CaptureErr error
	// Frame overrides the captured image.
	Frame []byte
}

func (f *Fake) PressAndHold(_ context.Context, b notation.Button, ticks int) error {
	if f.FailPress != nil {
		if err := f.FailPress(b); err != nil {
			return err
		}
	}
	f.Presses = append(f.Presses, Press{Buttons: b, Ticks: ticks})
	f.Ticks += ticks
	return nil
}

func (f *Fake) AdvanceTick(context.Context) error {
	f.Ticks++
	return nil
}

func (f *Fake) CaptureFrame(context.Context) (emulator.Frame, error) {
	if f.CaptureErr != nil {
		return emulator.Frame{}, f.CaptureErr
	}
	f.Frames++
	if f.Frame != nil {
		return emulator.Frame{PNG: f.Frame}, nil
	}
	return emulator.Frame{PNG: SolidPNG(2, 2, color.Black)}, nil
}

func (f *Fake) SaveState(_ context.Context, path string) error {
	f.Saved = append(f.Saved, path)
	return nil
}

func (f *Fake) LoadState(_ context.Context, path string) error {
	f.Loaded = append(f.Loaded, path)
	return nil
}

// SolidPNG encodes a w×h image filled with c.
func SolidPNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
