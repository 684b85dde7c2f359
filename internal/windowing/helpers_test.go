package windowing_test

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/game-agent/internal/windowing"
)

// Text block constructor
func T(text string) anthropic.ContentBlockParamUnion {
	return anthropic.ContentBlockParamUnion{OfText: &anthropic.TextBlockParam{Text: text}}
}

// Tool-use block constructor with raw JSON input
func TU(id, input string) anthropic.ContentBlockParamUnion {
	return anthropic.NewToolUseBlock(id, json.RawMessage(input), "send_inputs")
}

// Tool-result (string payload) constructor - preferred in counter tests for deterministic sizing
func TRString(id, s string) anthropic.ContentBlockParamUnion {
	return anthropic.NewToolResultBlock(id, s, false)
}

// Tool-result (nested content) constructor - used by counter tests for nested payload handling
func TRNested(id string, nested []anthropic.ContentBlockParamUnion) anthropic.ContentBlockParamUnion {
	// Convert ContentBlockParamUnion to ToolResultBlockParamContentUnion
	content := make([]anthropic.ToolResultBlockParamContentUnion, len(nested))
	for i, block := range nested {
		if textBlock := block.OfText; textBlock != nil {
			content[i] = anthropic.ToolResultBlockParamContentUnion{
				OfText: textBlock,
			}
		}
	}
	return anthropic.ContentBlockParamUnion{
		OfToolResult: &anthropic.ToolResultBlockParam{ToolUseID: id, Content: content},
	}
}

// Assistant message constructor
func Asst(blocks ...anthropic.ContentBlockParamUnion) anthropic.MessageParam {
	return anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: blocks}
}

// User message constructor
func User(blocks ...anthropic.ContentBlockParamUnion) anthropic.MessageParam {
	return anthropic.MessageParam{Role: anthropic.MessageParamRoleUser, Content: blocks}
}

// G builds a single-message user group with the given text.
func G(index int, text string) windowing.Group {
	return windowing.Group{Index: index, Messages: []anthropic.MessageParam{User(T(text))}}
}

func indexes(groups []windowing.Group) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.Index
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
