package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/petasbytes/game-agent/internal/emulator"
	"github.com/petasbytes/game-agent/internal/notation"
	"github.com/petasbytes/game-agent/internal/session"
	"github.com/petasbytes/game-agent/memory"
)

// Env is what the game tools act on. All fields are required.
type Env struct {
	Memory   *memory.Store
	Session  *session.State
	Emulator emulator.Controller
	Logger   *slog.Logger
}

// Definitions returns the game tool set bound to env.
func Definitions(env Env) []ToolDefinition {
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	g := gameTools{env}
	return []ToolDefinition{
		{
			Name: "send_inputs",
			Description: "Send a sequence of button inputs to the game. Notation: U D L R A B S (Start) X (Select), " +
				"combine symbols to press together (UB), append a number to hold for that many ticks (R3), " +
				"W or W<n> waits. Tokens are separated by spaces, e.g. \"R2 A U3 UB W5\".",
			InputSchema: GenerateSchema[SendInputsInput](),
			Function:    bind(g.sendInputs),
		},
		{
			Name:        "set_game",
			Description: "Record which game is being played once it has been identified.",
			InputSchema: GenerateSchema[SetGameInput](),
			Function:    bind(g.setGame),
		},
		{
			Name:        "set_current_goal",
			Description: "Set the current short-term goal you are working towards.",
			InputSchema: GenerateSchema[SetGoalInput](),
			Function:    bind(g.setGoal),
		},
		{
			Name:        "add_to_memory",
			Description: "Store a new fact in long-term memory. Fails if the category/key already exists; use update_memory_item instead.",
			InputSchema: GenerateSchema[MemoryItemInput](),
			Function:    bind(g.addToMemory),
		},
		{
			Name:        "remove_from_memory",
			Description: "Remove a fact from long-term memory that is no longer useful.",
			InputSchema: GenerateSchema[MemoryKeyInput](),
			Function:    bind(g.removeFromMemory),
		},
		{
			Name:        "update_memory_item",
			Description: "Replace the value of an existing long-term memory item.",
			InputSchema: GenerateSchema[MemoryItemInput](),
			Function:    bind(g.updateMemoryItem),
		},
		{
			Name:        "search_memory",
			Description: "Search long-term memory keys and values, optionally within one category.",
			InputSchema: GenerateSchema[SearchMemoryInput](),
			Function:    bind(g.searchMemory),
		},
	}
}

// NewGameRegistry builds the validated registry of game tools.
func NewGameRegistry(env Env) (*Registry, error) {
	return NewRegistry(Definitions(env)...)
}

type SendInputsInput struct {
	Inputs string `json:"inputs" jsonschema_description:"Space-separated input notation, e.g. \"R2 A U3 UB W5\"."`
}

func (in SendInputsInput) Validate() error { return required("inputs", in.Inputs) }

type SetGameInput struct {
	Name string `json:"name" jsonschema_description:"Name of the game."`
}

func (in SetGameInput) Validate() error { return required("name", in.Name) }

type SetGoalInput struct {
	Goal string `json:"goal" jsonschema_description:"The goal, in one sentence."`
}

func (in SetGoalInput) Validate() error { return required("goal", in.Goal) }

type MemoryItemInput struct {
	Category string `json:"category" jsonschema_description:"Category, e.g. items, npcs, map, mechanics."`
	Key      string `json:"key" jsonschema_description:"Short unique key within the category."`
	Value    string `json:"value" jsonschema_description:"The fact to remember."`
}

func (in MemoryItemInput) Validate() error {
	return required("category", in.Category, "key", in.Key, "value", in.Value)
}

// itemKey returns the trimmed category and key an item is stored under.
func itemKey(category, key string) (string, string) {
	return strings.TrimSpace(category), strings.TrimSpace(key)
}

type MemoryKeyInput struct {
	Category string `json:"category" jsonschema_description:"Category of the item."`
	Key      string `json:"key" jsonschema_description:"Key of the item."`
}

func (in MemoryKeyInput) Validate() error { return required("category", in.Category, "key", in.Key) }

type SearchMemoryInput struct {
	Query    string `json:"query" jsonschema_description:"Case-insensitive text to look for in keys and values."`
	Category string `json:"category,omitempty" jsonschema_description:"Optional category to restrict the search to."`
}

func (in SearchMemoryInput) Validate() error {
	if strings.TrimSpace(in.Query) == "" && strings.TrimSpace(in.Category) == "" {
		return invalidParams("one of %q or %q is required", "query", "category")
	}
	return nil
}

type gameTools struct {
	env Env
}

// sendInputs compiles the whole notation before touching the emulator, then
// runs it and lets the game settle for one tick.
func (g gameTools) sendInputs(ctx context.Context, in SendInputsInput) (Result, error) {
	seq, err := notation.Compile(in.Inputs)
	if err != nil {
		return Result{}, toolErr(CodeParse, "%v", err)
	}
	n, err := emulator.Run(ctx, g.env.Emulator, seq)
	if err != nil {
		return Result{}, emulatorErr(err, n, len(seq))
	}
	if err := g.env.Emulator.AdvanceTick(ctx); err != nil {
		return Result{}, emulatorErr(fmt.Errorf("settle tick: %w", err), n, len(seq))
	}
	return Result{Text: fmt.Sprintf("Executed %d actions (%d ticks): %s", len(seq), seq.TotalTicks(), seq)}, nil
}

func emulatorErr(err error, done, total int) *ToolError {
	return toolErr(CodeEmulator, "%v (completed %d of %d actions)", err, done, total)
}

func (g gameTools) setGame(_ context.Context, in SetGameInput) (Result, error) {
	name := strings.TrimSpace(in.Name)
	g.env.Session.GameName = name
	return Result{Text: fmt.Sprintf("Game set to %q", name)}, nil
}

func (g gameTools) setGoal(_ context.Context, in SetGoalInput) (Result, error) {
	goal := strings.TrimSpace(in.Goal)
	g.env.Session.CurrentGoal = goal
	return Result{Text: fmt.Sprintf("Current goal set to %q", goal)}, nil
}

func (g gameTools) addToMemory(_ context.Context, in MemoryItemInput) (Result, error) {
	in.Category, in.Key = itemKey(in.Category, in.Key)
	if err := g.env.Memory.Add(in.Category, in.Key, in.Value); err != nil {
		if errors.Is(err, memory.ErrDuplicateKey) {
			return Result{}, toolErr(CodeDuplicateKey, "[%s] %s already exists; use update_memory_item", in.Category, in.Key)
		}
		return Result{}, err
	}
	return Result{Text: fmt.Sprintf("Remembered [%s] %s", in.Category, in.Key)}, nil
}

func (g gameTools) removeFromMemory(_ context.Context, in MemoryKeyInput) (Result, error) {
	in.Category, in.Key = itemKey(in.Category, in.Key)
	if !g.env.Memory.Remove(in.Category, in.Key) {
		g.env.Logger.Warn("remove_from_memory: item not found", "category", in.Category, "key", in.Key)
		return Result{Warning: fmt.Sprintf("[%s] %s was not in memory; nothing removed", in.Category, in.Key)}, nil
	}
	return Result{Text: fmt.Sprintf("Removed [%s] %s", in.Category, in.Key)}, nil
}

func (g gameTools) updateMemoryItem(_ context.Context, in MemoryItemInput) (Result, error) {
	in.Category, in.Key = itemKey(in.Category, in.Key)
	if err := g.env.Memory.Update(in.Category, in.Key, in.Value); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return Result{}, toolErr(CodeNotFound, "[%s] %s does not exist; use add_to_memory", in.Category, in.Key)
		}
		return Result{}, err
	}
	return Result{Text: fmt.Sprintf("Updated [%s] %s", in.Category, in.Key)}, nil
}

func (g gameTools) searchMemory(_ context.Context, in SearchMemoryInput) (Result, error) {
	items := g.env.Memory.Search(in.Query, strings.TrimSpace(in.Category))
	if len(items) == 0 {
		return Result{Text: "No matching memory items."}, nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d matching items:\n", len(items))
	for _, it := range items {
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", it.Category, it.Key, it.Value)
	}
	return Result{Text: strings.TrimRight(sb.String(), "\n")}, nil
}
