package runner

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/game-agent/internal/emulator"
	"github.com/petasbytes/game-agent/internal/provider"
	"github.com/petasbytes/game-agent/internal/session"
	"github.com/petasbytes/game-agent/internal/windowing"
	"github.com/petasbytes/game-agent/memory"
)

const buttonRules = `Buttons: U (up), D (down), L (left), R (right), A, B, S (start), X (select).
Combine symbols in one token to press them together: "UB" holds up and B.
Append a number to hold for that many ticks: "A5" holds A for 5 ticks. Without a number the hold is 1 tick.
"W" waits one tick, "W10" waits 10 ticks.
Separate tokens with spaces: "A2 B2 R5 L2 U2". For discrete menu moves use "R R" rather than "R2".
Very long holds may skip past important events.`

const continuousNote = `
You are playing on a wall clock: turns start at a steady pace and each one
shows the current time. The game only advances through your inputs and waits,
so a pause between turns does not move it. Your inputs run as soon as you send them.
`

func systemPrompt(cfg Config) string {
	var sb strings.Builder
	sb.WriteString("You are an agent playing a video game. Each turn you receive the current frame and must use the provided tools to act. ")
	sb.WriteString("You only keep a few recent turns in short-term memory, so use the memory tools for anything you need to remember longer. ")
	sb.WriteString("Your ultimate objective is to beat the game.\n\n<notation>\n")
	sb.WriteString(buttonRules)
	sb.WriteString("\n</notation>\n")
	if cfg.Continuous {
		sb.WriteString(continuousNote)
	}
	if s := strings.TrimSpace(cfg.CustomInstructions); s != "" {
		fmt.Fprintf(&sb, "\n<custom_instructions>\n%s\n</custom_instructions>\n", s)
	}
	sb.WriteString("\nAlways use the tools to interact with the game.")
	return sb.String()
}

const reviewSummaryPrompt = `You are analyzing a gameplay session. Write a summary of what has happened so far so play can continue with little context.

Use three labeled sections:
1. GAMEPLAY SUMMARY: key events, progress and discoveries.
2. CRITICAL REVIEW: what worked and what did not over the recent turns, and any patterns to change.
3. NEXT STEPS: concrete immediate goals and actions.

<notation>
%s
</notation>

Be concise but complete. Tools are listed for reference only. DO NOT CALL ANY TOOLS.`

const planningSummaryPrompt = `You are planning a gameplay session. Write a summary that sets up the rest of the session.

Use three labeled sections:
1. GAMEPLAY SUMMARY: the game, its objective and the current state.
2. NEXT STEPS: concrete immediate goals and actions.
3. GAMEPLAY TIPS: game-specific knowledge such as controls and mechanics.

<notation>
%s
</notation>

Be concise but complete. Tools are listed for reference only. DO NOT CALL ANY TOOLS.`

func summaryPrompt(initial bool) string {
	if initial {
		return fmt.Sprintf(planningSummaryPrompt, buttonRules)
	}
	return fmt.Sprintf(reviewSummaryPrompt, buttonRules)
}

// renderRecord turns a record into the messages it contributed. Frames of
// past turns are referenced by name only.
func renderRecord(rec memory.TurnRecord, withReasoning bool) windowing.Group {
	if rec.Summary {
		return windowing.Group{
			Index:  rec.Index,
			Pinned: true,
			Messages: []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(
				fmt.Sprintf("Summary of play through turn %d:\n%s", rec.Index, rec.Text)))},
		}
	}

	header := fmt.Sprintf("Turn #%d", rec.Index)
	if rec.Screenshot != "" {
		header += fmt.Sprintf(" (frame %s)", rec.Screenshot)
	}

	var blocks []provider.Block
	if withReasoning {
		for _, th := range rec.Reasoning {
			blocks = append(blocks, provider.Reasoning{Text: th.Text, Signature: th.Signature, Redacted: th.Redacted})
		}
	}
	blocks = append(blocks, provider.Text{Text: rec.Text})
	results := make([]anthropic.ContentBlockParamUnion, 0, len(rec.Invocations))
	for _, inv := range rec.Invocations {
		blocks = append(blocks, provider.ToolCall{ID: inv.ID, Name: inv.Name, Input: inv.Input})
		results = append(results, anthropic.NewToolResultBlock(inv.ID, inv.Output, inv.IsError))
	}

	return windowing.Group{
		Index: rec.Index,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(header)),
			anthropic.NewAssistantMessage(provider.ToParams(blocks)...),
			anthropic.NewUserMessage(results...),
		},
	}
}

// turnMessage is the user message opening a turn: the session state, the
// long-term memory and the current frame.
func turnMessage(index int, st session.State, mem *memory.Store, frame emulator.Frame, frameErr error, continuous bool, now time.Time) anthropic.MessageParam {
	var sb strings.Builder
	if continuous {
		fmt.Fprintf(&sb, "Current time: %s\n", now.Format(time.DateTime))
	}
	fmt.Fprintf(&sb, "Turn #%d\n", index)
	sb.WriteString(st.Describe())
	if r := mem.Render(); r != "" {
		sb.WriteString("\n")
		sb.WriteString(r)
	}

	content := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(strings.TrimRight(sb.String(), "\n"))}
	switch {
	case frameErr != nil:
		content = append(content, anthropic.NewTextBlock(fmt.Sprintf("[frame unavailable: %v]", frameErr)))
	case frame.Empty():
		content = append(content, anthropic.NewTextBlock("[frame unavailable: empty capture]"))
	default:
		content = append(content, anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(frame.PNG)))
	}
	return anthropic.NewUserMessage(content...)
}

// summaryRequestMessage closes the summary window with the instruction, the
// previous summary and the session state.
func summaryRequestMessage(prev string, st session.State) anthropic.MessageParam {
	content := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock("Analyze the gameplay session and write a summary following the system instructions."),
	}
	if prev != "" {
		content = append(content, anthropic.NewTextBlock("Previous summary:\n\n"+prev))
	}
	content = append(content, anthropic.NewTextBlock("Current game state:\n\n"+st.Describe()))
	return anthropic.NewUserMessage(content...)
}
