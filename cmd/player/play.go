package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petasbytes/game-agent/internal/artifacts"
	"github.com/petasbytes/game-agent/internal/config"
	"github.com/petasbytes/game-agent/internal/emulator"
	"github.com/petasbytes/game-agent/internal/provider"
	"github.com/petasbytes/game-agent/internal/runner"
	"github.com/petasbytes/game-agent/internal/statusapi"
	"github.com/petasbytes/game-agent/internal/store"
	"github.com/petasbytes/game-agent/internal/telemetry"
	"github.com/petasbytes/game-agent/memory"
)

func newPlayCmd(c *cli) *cobra.Command {
	var (
		maxTurns   int
		continuous bool
		loadState  string
		statusAddr string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the game loaded in the emulator bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("max-turns") {
				c.cfg.Loop.MaxTurns = maxTurns
			}
			if continuous {
				c.cfg.Mode = config.ModeContinuous
			}
			if flags.Changed("load-state") {
				c.cfg.Emulator.LoadState = loadState
			}
			if flags.Changed("status-addr") {
				c.cfg.Status.Addr = statusAddr
			}
			if err := c.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			if os.Getenv("ANTHROPIC_API_KEY") == "" {
				return errors.New("missing ANTHROPIC_API_KEY; export it or put it in .env")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, c.cfg, c.logger)
		},
	}
	cmd.Flags().IntVarP(&maxTurns, "max-turns", "n", 0, "Stop after n turns; 0 plays until interrupted")
	cmd.Flags().BoolVar(&continuous, "continuous", false, "Pace turns on a timer (mode = continuous)")
	cmd.Flags().StringVar(&loadState, "load-state", "", "Emulator save state to load before the first turn")
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "Serve the status API on this address, e.g. :8080")
	return cmd
}

// play wires the collaborators and runs the loop until it stops.
func play(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	telemetryDir := cfg.Telemetry.Dir
	if telemetryDir == "" {
		telemetryDir = cfg.Storage.Dir
	}
	telemetry.Configure(telemetry.Options{Observe: cfg.Telemetry.Observe, Dir: telemetryDir})

	db, err := store.NewSQLiteStore(cfg.Storage.DatabasePath())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer db.Close()
	sess, err := db.CreateSession(ctx)
	if err != nil {
		return err
	}
	logger = logger.With("session", sess.ID)
	defer func() {
		if err := db.EndSession(context.WithoutCancel(ctx), sess.ID); err != nil {
			logger.Warn("session end not recorded", "error", err)
		}
	}()

	frames, err := artifacts.NewFrameStore(cfg.Storage.Dir, sess.ID)
	if err != nil {
		return err
	}

	bridge, err := emulator.Dial(ctx, cfg.Emulator.URL, logger)
	if err != nil {
		return fmt.Errorf("connect to emulator bridge: %w", err)
	}
	defer bridge.Close()

	if cfg.Emulator.LoadState != "" {
		p, err := filepath.Abs(cfg.Emulator.LoadState)
		if err != nil {
			return err
		}
		if err := bridge.LoadState(ctx, p); err != nil {
			return fmt.Errorf("load state %s: %w", p, err)
		}
		logger.Info("save state loaded", "path", p)
	}

	svc := provider.NewAnthropic(provider.NewAnthropicClient(), logger)
	orch, err := runner.New(cfg.Runner(), runner.Deps{
		Service:   svc,
		Emulator:  bridge,
		Frames:    frames,
		Recorder:  store.SessionRecorder{Store: db, SessionID: sess.ID},
		Logger:    logger,
		SessionID: sess.ID,
	})
	if err != nil {
		return err
	}

	if cfg.Status.Addr != "" {
		h := statusapi.NewHandler(orch, frames, logger)
		go func() {
			if err := statusapi.Serve(ctx, cfg.Status.Addr, h.Router(), logger); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
	}

	if cfg.Mode == config.ModeContinuous {
		err = orch.RunContinuous(ctx)
	} else {
		err = orch.Run(ctx)
	}

	finish(context.WithoutCancel(ctx), cfg, sess.ID, orch, bridge, frames, logger)
	return err
}

// finish saves what the session leaves behind. Failures are only logged.
func finish(ctx context.Context, cfg config.Config, sessionID string, orch *runner.Orchestrator, bridge *emulator.Bridge, frames *artifacts.FrameStore, logger *slog.Logger) {
	transcript := filepath.Join(cfg.Storage.Dir, "transcripts", sessionID+".json")
	if err := os.MkdirAll(filepath.Dir(transcript), 0o755); err != nil {
		logger.Warn("transcript not saved", "error", err)
	} else if err := memory.SaveTranscript(transcript, orch.History().Window()); err != nil {
		logger.Warn("transcript not saved", "error", err)
	}

	if cfg.Emulator.SaveState == "" {
		return
	}
	p, err := frames.StatePath(cfg.Emulator.SaveState)
	if err != nil {
		logger.Warn("save state skipped", "error", err)
		return
	}
	if err := bridge.SaveState(ctx, p); err != nil {
		logger.Warn("save state failed", "path", p, "error", err)
		return
	}
	logger.Info("save state written", "path", p)
}
