package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/petasbytes/game-agent/internal/config"
)

// cli carries what the subcommands share: the loaded config and logger.
type cli struct {
	configPath string
	logLevel   string

	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	c := &cli{closeLog: func() error { return nil }}
	root := &cobra.Command{
		Use:           "player",
		Short:         "Let a model play an emulated game, turn by turn",
		Long:          "player connects a model to an emulator bridge and plays: each turn it captures a frame, asks the model what to do and runs the requested tools.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.closeLog()
		},
	}
	addGlobalFlags(root.PersistentFlags(), c)

	root.AddCommand(
		newPlayCmd(c),
		newCompileCmd(),
		newHistoryCmd(c),
		newConfigCmd(),
	)
	return root
}

func addGlobalFlags(fs *pflag.FlagSet, c *cli) {
	fs.StringVarP(&c.configPath, "config", "c", "", "Config file (default: ./"+config.FileName+" when present)")
	fs.StringVar(&c.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
}

// load reads .env, the config and sets up logging. Commands that need the
// config call it first.
func (c *cli) load(stderr io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	logger, closeLog, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	c.cfg, c.logger, c.closeLog = cfg, logger, closeLog
	return nil
}

// newLogger builds the slog logger; a log file receives the same records
// as stderr.
func newLogger(lc config.LogConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, nil, err
	}
	w := stderr
	closeLog := func() error { return nil }
	if lc.File != "" {
		if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(stderr, f)
		closeLog = f.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if lc.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closeLog, nil
}
