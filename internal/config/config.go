// Package config loads the player configuration from player.toml, PLAYER_*
// environment variables and built-in defaults, in increasing order of
// precedence: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/petasbytes/game-agent/internal/provider"
	"github.com/petasbytes/game-agent/internal/runner"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName  = "player.toml"
	envPrefix = "PLAYER"

	ModeTurnBased  = "turn_based"
	ModeContinuous = "continuous"
)

// modeKeys are the model settings action and summary inherit from
// model_defaults when they leave them unset.
var modeKeys = []string{"model", "max_tokens", "thinking", "thinking_budget", "efficient_tools"}

// Config is the static configuration of a play session.
type Config struct {
	Mode               string              `mapstructure:"mode"`
	CustomInstructions string              `mapstructure:"custom_instructions"`
	ModelDefaults      provider.ModeConfig `mapstructure:"model_defaults"`
	Action             provider.ModeConfig `mapstructure:"action"`
	Summary            SummaryConfig       `mapstructure:"summary"`
	History            HistoryConfig       `mapstructure:"history"`
	Loop               LoopConfig          `mapstructure:"loop"`
	Retry              runner.RetryPolicy  `mapstructure:"retry"`
	Emulator           EmulatorConfig      `mapstructure:"emulator"`
	Storage            StorageConfig       `mapstructure:"storage"`
	Status             StatusConfig        `mapstructure:"status"`
	Log                LogConfig           `mapstructure:"log"`
	Telemetry          TelemetryConfig     `mapstructure:"telemetry"`
}

type SummaryConfig struct {
	provider.ModeConfig `mapstructure:",squash"`
	Interval            int  `mapstructure:"interval"`
	Initial             bool `mapstructure:"initial"`
}

type HistoryConfig struct {
	MaxTurns    int `mapstructure:"max_turns"`
	TokenBudget int `mapstructure:"token_budget"`
}

type LoopConfig struct {
	AnalysisInterval time.Duration `mapstructure:"analysis_interval"`
	MaxTurns         int           `mapstructure:"max_turns"`
}

type EmulatorConfig struct {
	URL           string `mapstructure:"url"`
	UpscaleFactor int    `mapstructure:"upscale_factor"`
	// LoadState names a save state to load before the first turn.
	LoadState string `mapstructure:"load_state"`
	// SaveState names a save state written when the loop stops.
	SaveState string `mapstructure:"save_state"`
}

type StorageConfig struct {
	Dir      string `mapstructure:"dir"`
	Database string `mapstructure:"database"`
}

// DatabasePath resolves Database relative to Dir.
func (s StorageConfig) DatabasePath() string {
	if filepath.IsAbs(s.Database) {
		return s.Database
	}
	return filepath.Join(s.Dir, s.Database)
}

type StatusConfig struct {
	// Addr enables the status API when non-empty.
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type TelemetryConfig struct {
	Observe bool   `mapstructure:"observe"`
	Dir     string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeTurnBased)
	v.SetDefault("custom_instructions", "")

	v.SetDefault("model_defaults.model", string(provider.DefaultModel))
	v.SetDefault("model_defaults.max_tokens", 20000)
	v.SetDefault("model_defaults.thinking", true)
	v.SetDefault("model_defaults.thinking_budget", 16000)
	v.SetDefault("model_defaults.efficient_tools", true)

	v.SetDefault("summary.interval", 30)
	v.SetDefault("summary.initial", false)

	v.SetDefault("history.max_turns", 10)
	v.SetDefault("history.token_budget", 0)

	v.SetDefault("loop.analysis_interval", "5s")
	v.SetDefault("loop.max_turns", 0)

	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_backoff", "1s")
	v.SetDefault("retry.max_backoff", "30s")

	v.SetDefault("emulator.url", "ws://127.0.0.1:8765/control")
	v.SetDefault("emulator.upscale_factor", 3)
	v.SetDefault("emulator.load_state", "")
	v.SetDefault("emulator.save_state", "")

	v.SetDefault("storage.dir", ".player")
	v.SetDefault("storage.database", "player.db")

	v.SetDefault("status.addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("telemetry.observe", false)
	v.SetDefault("telemetry.dir", "")
}

// Load reads the configuration. An empty path looks for player.toml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	for _, section := range []string{"action", "summary"} {
		inherit(v, section)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// inherit fills the mode keys of section from model_defaults. Explicit
// values, from the file or the environment, are set too so Unmarshal sees
// environment-only keys.
func inherit(v *viper.Viper, section string) {
	for _, k := range modeKeys {
		key := section + "." + k
		if v.IsSet(key) {
			v.Set(key, v.Get(key))
			continue
		}
		v.Set(key, v.Get("model_defaults."+k))
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Mode != ModeTurnBased && c.Mode != ModeContinuous {
		errs = append(errs, fmt.Errorf("mode: must be %q or %q, got %q", ModeTurnBased, ModeContinuous, c.Mode))
	}
	errs = append(errs, validateMode("action", c.Action), validateMode("summary", c.Summary.ModeConfig))
	if c.Summary.Interval < 0 {
		errs = append(errs, errors.New("summary.interval: must be >= 0"))
	}
	if c.History.MaxTurns < 1 {
		errs = append(errs, errors.New("history.max_turns: must be >= 1"))
	}
	if c.History.TokenBudget < 0 {
		errs = append(errs, errors.New("history.token_budget: must be >= 0"))
	}
	if c.Mode == ModeContinuous && c.Loop.AnalysisInterval <= 0 {
		errs = append(errs, errors.New("loop.analysis_interval: must be positive in continuous mode"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts: must be >= 1"))
	}
	if c.Retry.InitialBackoff < 0 || c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		errs = append(errs, errors.New("retry: backoffs must satisfy 0 <= initial_backoff <= max_backoff"))
	}
	if u, err := url.Parse(c.Emulator.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		errs = append(errs, fmt.Errorf("emulator.url: must be a ws:// or wss:// URL, got %q", c.Emulator.URL))
	}
	if c.Emulator.UpscaleFactor < 1 || c.Emulator.UpscaleFactor > 8 {
		errs = append(errs, errors.New("emulator.upscale_factor: must be between 1 and 8"))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage.dir: must not be empty"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func validateMode(section string, m provider.ModeConfig) error {
	var errs []error
	if strings.TrimSpace(m.Model) == "" {
		errs = append(errs, fmt.Errorf("%s.model: must not be empty", section))
	}
	if m.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("%s.max_tokens: must be >= 1", section))
	}
	if m.Thinking && (m.ThinkingBudget < 1024 || m.ThinkingBudget >= m.MaxTokens) {
		errs = append(errs, fmt.Errorf("%s.thinking_budget: must be >= 1024 and below max_tokens when thinking is on", section))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Runner is the loop configuration derived from c.
func (c Config) Runner() runner.Config {
	return runner.Config{
		Action:             c.Action,
		Summary:            c.Summary.ModeConfig,
		TokenBudget:        c.History.TokenBudget,
		MaxHistory:         c.History.MaxTurns,
		SummaryInterval:    c.Summary.Interval,
		InitialSummary:     c.Summary.Initial,
		UpscaleFactor:      c.Emulator.UpscaleFactor,
		CustomInstructions: c.CustomInstructions,
		Continuous:         c.Mode == ModeContinuous,
		AnalysisInterval:   c.Loop.AnalysisInterval,
		MaxTurns:           c.Loop.MaxTurns,
		Retry:              c.Retry,
	}
}

// WriteDefault writes the built-in defaults as TOML. It refuses to replace
// an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	v := viper.New()
	setDefaults(v)
	data, err := toml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
