package emulator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/petasbytes/game-agent/internal/notation"
)

// frameReadLimit bounds a single bridge message; captured frames are the
// largest payload.
const frameReadLimit = 8 << 20

// bridgeRequest is one command sent to the emulator bridge.
type bridgeRequest struct {
	ID      uint64   `json:"id"`
	Op      string   `json:"op"`
	Buttons []string `json:"buttons,omitempty"`
	Ticks   int      `json:"ticks,omitempty"`
	Path    string   `json:"path,omitempty"`
}

// bridgeResponse answers the request with the same ID.
type bridgeResponse struct {
	ID    uint64 `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Frame []byte `json:"frame,omitempty"`
}

// Bridge drives an emulator process over a JSON websocket protocol. Each
// call is one request/response round trip.
type Bridge struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	seq    atomic.Uint64
	logger *slog.Logger
	closed bool
}

// Dial connects to a bridge at url (ws:// or wss://).
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial emulator bridge: %w", err)
	}
	conn.SetReadLimit(frameReadLimit)
	logger.Info("emulator bridge connected", "url", url)
	return &Bridge{conn: conn, logger: logger}, nil
}

func (b *Bridge) PressAndHold(ctx context.Context, buttons notation.Button, ticks int) error {
	_, err := b.call(ctx, bridgeRequest{Op: "press", Buttons: buttons.Names(), Ticks: ticks})
	return err
}

func (b *Bridge) AdvanceTick(ctx context.Context) error {
	_, err := b.call(ctx, bridgeRequest{Op: "tick", Ticks: 1})
	return err
}

func (b *Bridge) CaptureFrame(ctx context.Context) (Frame, error) {
	resp, err := b.call(ctx, bridgeRequest{Op: "capture"})
	if err != nil {
		return Frame{}, err
	}
	return Frame{PNG: resp.Frame}, nil
}

func (b *Bridge) SaveState(ctx context.Context, path string) error {
	_, err := b.call(ctx, bridgeRequest{Op: "save_state", Path: path})
	return err
}

func (b *Bridge) LoadState(ctx context.Context, path string) error {
	_, err := b.call(ctx, bridgeRequest{Op: "load_state", Path: path})
	return err
}

// Close ends the session with a normal closure.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.conn.Close(websocket.StatusNormalClosure, "agent stopped")
}

func (b *Bridge) call(ctx context.Context, req bridgeRequest) (bridgeResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return bridgeResponse{}, ErrClosed
	}

	req.ID = b.seq.Add(1)
	if err := wsjson.Write(ctx, b.conn, req); err != nil {
		return bridgeResponse{}, fmt.Errorf("emulator %s: write: %w", req.Op, err)
	}
	for {
		var resp bridgeResponse
		if err := wsjson.Read(ctx, b.conn, &resp); err != nil {
			return bridgeResponse{}, fmt.Errorf("emulator %s: read: %w", req.Op, err)
		}
		if resp.ID != req.ID {
			b.logger.Debug("discarding stale bridge response", "want_id", req.ID, "got_id", resp.ID)
			continue
		}
		if !resp.OK {
			return resp, &ControlError{Op: req.Op, Reason: resp.Error}
		}
		return resp, nil
	}
}
