package runner

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/game-agent/internal/artifacts"
	"github.com/petasbytes/game-agent/internal/emulator"
	"github.com/petasbytes/game-agent/internal/provider"
	"github.com/petasbytes/game-agent/internal/session"
	"github.com/petasbytes/game-agent/internal/telemetry"
	"github.com/petasbytes/game-agent/internal/windowing"
	"github.com/petasbytes/game-agent/memory"
	"github.com/petasbytes/game-agent/tools"
)

// Config is the static configuration of the loop. It is never mutated once
// the orchestrator is built.
type Config struct {
	Action  provider.ModeConfig
	Summary provider.ModeConfig

	// TokenBudget caps the estimated input tokens of the history sent with a
	// request; <= 0 sends the whole history window.
	TokenBudget     int
	MaxHistory      int
	SummaryInterval int
	InitialSummary  bool

	UpscaleFactor      int
	CustomInstructions string

	Continuous       bool
	AnalysisInterval time.Duration

	// MaxTurns stops Run after that many turns; <= 0 runs until cancelled.
	MaxTurns int

	Retry RetryPolicy
}

// Recorder persists completed turn records. Failures are logged and never
// abort a turn.
type Recorder interface {
	RecordTurn(ctx context.Context, rec memory.TurnRecord, st session.State) error
}

// Deps are the collaborators of the loop. Frames and Recorder are optional.
type Deps struct {
	Service  provider.Service
	Emulator emulator.Controller
	Frames   *artifacts.FrameStore
	Recorder Recorder
	Logger   *slog.Logger

	// SessionID tags telemetry events and log lines; it may be empty.
	SessionID string
}

// Orchestrator owns the session state, both memories and the emulator for
// the lifetime of a play session. Apart from Snapshot and State its methods
// must be called from a single goroutine.
type Orchestrator struct {
	cfg      Config
	svc      provider.Service
	emu      emulator.Controller
	frames   *artifacts.FrameStore
	recorder Recorder
	logger   *slog.Logger
	session  string

	tools   *tools.Registry
	memory  *memory.Store
	history *memory.Context
	state   *session.State
	sched   session.Scheduler

	phase    atomic.Int32
	snapshot atomic.Pointer[Snapshot]

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New builds an orchestrator with empty memories.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Service == nil {
		return nil, errors.New("runner: model service is required")
	}
	if deps.Emulator == nil {
		return nil, errors.New("runner: emulator is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy
	}

	o := &Orchestrator{
		cfg:      cfg,
		svc:      deps.Service,
		emu:      deps.Emulator,
		frames:   deps.Frames,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		session:  deps.SessionID,
		memory:   memory.NewStore(),
		history:  memory.NewContext(cfg.MaxHistory),
		state:    &session.State{},
		now:      time.Now,
		after:    time.After,
	}
	o.sched = session.Scheduler{Interval: cfg.SummaryInterval, Initial: cfg.InitialSummary, History: o.history}

	reg, err := tools.NewGameRegistry(tools.Env{
		Memory:   o.memory,
		Session:  o.state,
		Emulator: o.emu,
		Logger:   o.logger,
	})
	if err != nil {
		return nil, err
	}
	o.tools = reg
	o.publish("")
	return o, nil
}

// State is the current phase. Safe for concurrent use.
func (o *Orchestrator) State() State { return State(o.phase.Load()) }

// Session returns a copy of the session state.
func (o *Orchestrator) Session() session.State { return *o.state }

// Memory is the long-term store.
func (o *Orchestrator) Memory() *memory.Store { return o.memory }

// History is the short-term context.
func (o *Orchestrator) History() *memory.Context { return o.history }

// Run plays turns until ctx is cancelled, MaxTurns is reached or a fatal
// error occurs. Cancellation is a clean stop and returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("play loop started", "mode", "turn-based", "max_turns", o.cfg.MaxTurns)
	for n := 0; o.cfg.MaxTurns <= 0 || n < o.cfg.MaxTurns; n++ {
		if err := o.RunTurn(ctx); err != nil {
			return o.finish(err)
		}
	}
	o.logger.Info("play loop finished", "turns", o.state.TurnCounter)
	return nil
}

func (o *Orchestrator) finish(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		o.logger.Info("play loop stopped", "turns", o.state.TurnCounter)
		return nil
	}
	o.logger.Error("play loop stopped", "turns", o.state.TurnCounter, "error", err)
	return err
}

// RunTurn plays one turn, including a due summary. A returned error leaves
// the orchestrator Stopped.
func (o *Orchestrator) RunTurn(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			o.setState(StateStopped)
			o.publish(err.Error())
			return
		}
		o.setState(StateIdle)
		o.publish("")
	}()
	if err := ctx.Err(); err != nil {
		return err
	}

	index := o.state.TurnCounter + 1
	turn := telemetry.NewTurn(o.session, index)
	ctx = telemetry.WithTurn(ctx, turn)
	logger := o.logger.With("turn", index, "turn_id", turn.ID)
	telemetry.EmitTurn(ctx, "turn_started", nil)

	o.setState(StateCapturingFrame)
	frame, frameErr := o.capture(ctx, logger)
	ref := o.saveFrame(index, frame, logger)

	o.setState(StateAwaitingModel)
	msg := turnMessage(index, *o.state, o.memory, frame, frameErr, o.cfg.Continuous, o.now())
	resp, err := o.send(ctx, "action", provider.Request{
		Mode:     o.cfg.Action,
		System:   systemPrompt(o.cfg),
		Messages: o.window(ctx, "action", o.cfg.Action, msg),
		Tools:    o.tools.Params(),
	})
	if err != nil {
		return err
	}

	o.setState(StateDispatchingTools)
	rec := memory.TurnRecord{Index: index, Screenshot: ref}
	var texts []string
	for _, b := range resp.Blocks {
		switch v := b.(type) {
		case provider.Reasoning:
			rec.Reasoning = append(rec.Reasoning, memory.Thought{Text: v.Text, Signature: v.Signature, Redacted: v.Redacted})
		case provider.Text:
			if v.Text != "" {
				texts = append(texts, v.Text)
				logger.Info("model", "text", v.Text)
			}
		case provider.ToolCall:
			rec.Invocations = append(rec.Invocations, o.dispatch(ctx, v, logger))
		}
	}
	rec.Text = strings.Join(texts, "\n")
	rec.Timestamp = o.now()

	o.setState(StateAdvancing)
	o.history.Append(rec)
	o.state.Advance()
	o.record(ctx, rec, logger)
	telemetry.EmitTurnFeatures(ctx, rec)

	if err := ctx.Err(); err != nil {
		return err
	}
	if o.sched.ShouldSummarize(*o.state) {
		return o.summarize(ctx, logger)
	}
	return nil
}

func (o *Orchestrator) capture(ctx context.Context, logger *slog.Logger) (emulator.Frame, error) {
	frame, err := o.emu.CaptureFrame(ctx)
	if err != nil {
		logger.Warn("frame capture failed; continuing without image", "error", err)
		return emulator.Frame{}, err
	}
	if o.cfg.UpscaleFactor > 1 && !frame.Empty() {
		up, err := emulator.Upscale(frame.PNG, o.cfg.UpscaleFactor)
		if err != nil {
			logger.Warn("frame upscale failed; sending original", "error", err)
			return frame, nil
		}
		frame.PNG = up
	}
	return frame, nil
}

func (o *Orchestrator) saveFrame(index int, frame emulator.Frame, logger *slog.Logger) string {
	if o.frames == nil || frame.Empty() {
		return ""
	}
	ref, err := o.frames.SaveFrame(index, frame.PNG)
	if err != nil {
		logger.Warn("frame not saved", "error", err)
		return ""
	}
	return ref
}

// dispatch runs one tool call to completion. A stop request never interrupts
// a held input sequence.
func (o *Orchestrator) dispatch(ctx context.Context, call provider.ToolCall, logger *slog.Logger) memory.ToolInvocation {
	start := o.now()
	res, err := o.tools.Dispatch(context.WithoutCancel(ctx), call.Name, call.Input)

	inv := memory.ToolInvocation{ID: call.ID, Name: call.Name, Input: call.Input}
	fields := map[string]any{
		"tool_name":   call.Name,
		"duration_ms": o.now().Sub(start).Milliseconds(),
		"input_size":  len(call.Input),
	}
	if err != nil {
		inv.Output = err.Error()
		inv.IsError = true
		fields["error"] = tools.CodeOf(err)
		fields["output_size"] = 0
		logger.Warn("tool failed", "tool", call.Name, "error", err)
	} else {
		inv.Output = res.String()
		fields["error"] = nil
		fields["output_size"] = len(inv.Output)
		logger.Info("tool", "tool", call.Name, "result", inv.Output)
	}
	telemetry.EmitTurn(ctx, "tool_exec", fields)
	return inv
}

func (o *Orchestrator) record(ctx context.Context, rec memory.TurnRecord, logger *slog.Logger) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordTurn(context.WithoutCancel(ctx), rec, *o.state); err != nil {
		logger.Warn("turn not persisted", "index", rec.Index, "summary", rec.Summary, "error", err)
	}
}

// window renders the history as the messages of a request ending with tail,
// trimmed to the token budget.
func (o *Orchestrator) window(ctx context.Context, kind string, mode provider.ModeConfig, tail ...anthropic.MessageParam) []anthropic.MessageParam {
	recs := o.history.Window()
	groups := make([]windowing.Group, 0, len(recs))
	for _, r := range recs {
		groups = append(groups, renderRecord(r, mode.Thinking))
	}

	if o.cfg.TokenBudget > 0 {
		counter := windowing.HeuristicCounter{ImageCost: windowing.FrameImageCost}
		reserved := 0
		for _, m := range tail {
			reserved += counter.CountMessage(m)
		}
		kept, stats := windowing.PrepareSendWindow(groups, o.cfg.TokenBudget-reserved, counter)
		telemetry.EmitTurn(ctx, "window_prepared", map[string]any{
			"kind":               kind,
			"model":              mode.Model,
			"budget":             o.cfg.TokenBudget,
			"reserved":           reserved,
			"total_estimated":    stats.Total,
			"included_groups":    stats.IncludedGroups,
			"skipped_groups":     stats.SkippedGroups,
			"over_budget_newest": stats.OverBudgetNewest,
		})
		if stats.OverBudgetNewest {
			o.logger.Warn("recent turns do not fit the token budget; sending pinned history only",
				"kind", kind, "budget", o.cfg.TokenBudget, "reserved", reserved)
		}
		groups = kept
	}
	return windowing.AppendMessages(windowing.Flatten(groups), tail...)
}

// summarize runs the summary sub-turn and folds its text into the history.
func (o *Orchestrator) summarize(ctx context.Context, logger *slog.Logger) error {
	initial := o.sched.IsInitial(*o.state)
	var prev string
	if s, ok := o.history.Summary(); ok {
		prev = s.Text
	}

	resp, err := o.send(ctx, "summary", provider.Request{
		Mode:         o.cfg.Summary,
		System:       summaryPrompt(initial),
		Messages:     o.window(ctx, "summary", o.cfg.Summary, summaryRequestMessage(prev, *o.state)),
		Tools:        o.tools.Params(),
		DisableTools: true,
	})
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, b := range resp.Blocks {
		if t, ok := b.(provider.Text); ok {
			sb.WriteString(t.Text)
		}
	}
	if n := len(resp.ToolCalls()); n > 0 {
		logger.Warn("summary requested tool calls; ignored", "count", n)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		logger.Warn("summary was empty; history left as is")
		o.state.LastSummaryTurn = o.state.TurnCounter
		return nil
	}

	changed := o.sched.OnSummaryProduced(o.state, text, o.now())
	telemetry.EmitTurn(ctx, "summary", map[string]any{
		"turn":      o.state.TurnCounter,
		"initial":   initial,
		"chars":     len(text),
		"compacted": changed,
	})
	logger.Info("summary produced", "initial", initial, "chars", len(text), "compacted", changed)
	if s, ok := o.history.Summary(); ok && changed {
		o.record(ctx, s, logger)
	}
	return nil
}

func (o *Orchestrator) setState(s State) { o.phase.Store(int32(s)) }
