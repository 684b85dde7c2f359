// Package statusapi serves a read-only HTTP view of a running play session.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/petasbytes/game-agent/internal/artifacts"
	"github.com/petasbytes/game-agent/internal/runner"
	"github.com/petasbytes/game-agent/memory"
)

// SnapshotSource publishes the latest loop snapshot.
type SnapshotSource interface {
	Snapshot() *runner.Snapshot
}

// Handler serves the status routes.
type Handler struct {
	source SnapshotSource
	frames *artifacts.FrameStore
	logger *slog.Logger
}

// NewHandler returns a handler over source. frames may be nil, which
// disables the frame route.
func NewHandler(source SnapshotSource, frames *artifacts.FrameStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{source: source, frames: frames, logger: logger}
}

// Router builds the chi router with every route registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/healthz"))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the status routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Get("/memory", h.Memory)
	r.Get("/history", h.History)
	if h.frames != nil {
		r.Get("/frames/*", h.Frame)
	}
}

type statusResponse struct {
	State       string    `json:"state"`
	GameName    string    `json:"game_name,omitempty"`
	CurrentGoal string    `json:"current_goal,omitempty"`
	Turn        int       `json:"turn"`
	LastSummary int       `json:"last_summary_turn"`
	MemoryItems int       `json:"memory_items"`
	HistoryLen  int       `json:"history_len"`
	LastError   string    `json:"last_error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Status reports the session state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	if snap == nil {
		Error(w, http.StatusServiceUnavailable, "no snapshot published yet")
		return
	}
	JSON(w, http.StatusOK, statusResponse{
		State:       snap.State,
		GameName:    snap.Session.GameName,
		CurrentGoal: snap.Session.CurrentGoal,
		Turn:        snap.Session.TurnCounter,
		LastSummary: snap.Session.LastSummaryTurn,
		MemoryItems: len(snap.Memory),
		HistoryLen:  len(snap.History),
		LastError:   snap.LastError,
		UpdatedAt:   snap.UpdatedAt,
	})
}

// Memory lists long-term memory items, optionally filtered by ?category=
// and a case-insensitive ?q= match on key or value.
func (h *Handler) Memory(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	if snap == nil {
		Error(w, http.StatusServiceUnavailable, "no snapshot published yet")
		return
	}
	category := r.URL.Query().Get("category")
	q := strings.ToLower(r.URL.Query().Get("q"))
	items := make([]memory.Item, 0, len(snap.Memory))
	for _, it := range snap.Memory {
		if category != "" && it.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(it.Key), q) && !strings.Contains(strings.ToLower(it.Value), q) {
			continue
		}
		items = append(items, it)
	}
	JSON(w, http.StatusOK, map[string]any{"items": items})
}

// History returns the short-term context, optionally only the newest
// ?limit= records.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	if snap == nil {
		Error(w, http.StatusServiceUnavailable, "no snapshot published yet")
		return
	}
	recs := snap.History
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n < len(recs) {
			recs = recs[len(recs)-n:]
		}
	}
	if recs == nil {
		recs = []memory.TurnRecord{}
	}
	JSON(w, http.StatusOK, map[string]any{"records": recs})
}

// Frame serves a saved frame by its reference.
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	ref := "frames/" + chi.URLParam(r, "*")
	p, err := h.frames.Open(ref)
	if err != nil {
		if errors.Is(err, artifacts.ErrOutsideRoot) {
			Error(w, http.StatusBadRequest, "invalid frame reference")
			return
		}
		Error(w, http.StatusNotFound, "frame not found")
		return
	}
	if _, err := os.Stat(p); err != nil {
		Error(w, http.StatusNotFound, "frame not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, p)
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("statusapi: encode response", "error", err)
	}
}

// Error writes a JSON error body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Serve runs the status server on addr until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("status server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
