// Package provider is the model-service collaborator: a small request and
// response model over a closed set of content blocks, and an Anthropic
// Messages implementation of it.
package provider

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
)

// Block is one piece of a model response. The set of implementations is
// closed: Reasoning, Text and ToolCall.
type Block interface {
	isBlock()
}

// Reasoning is an extended-thinking block. Signature and Redacted are opaque
// and must be echoed back verbatim in later requests.
type Reasoning struct {
	Text      string
	Signature string
	Redacted  string
}

// Text is plain assistant output.
type Text struct {
	Text string
}

// ToolCall asks the agent to run a registered tool.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

func (Reasoning) isBlock() {}
func (Text) isBlock()      {}
func (ToolCall) isBlock()  {}

// ModeConfig is the model configuration for one kind of call (action turn or
// summary). It is read-only input.
type ModeConfig struct {
	Model          string `mapstructure:"model"`
	MaxTokens      int64  `mapstructure:"max_tokens"`
	Thinking       bool   `mapstructure:"thinking"`
	ThinkingBudget int64  `mapstructure:"thinking_budget"`
	EfficientTools bool   `mapstructure:"efficient_tools"`
}

// Request is one model call.
type Request struct {
	Mode     ModeConfig
	System   string
	Messages []anthropic.MessageParam
	Tools    []anthropic.ToolUnionParam
	// DisableTools sends Tools for reference but forbids calling them.
	DisableTools bool
}

// Usage is the token accounting of a response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response carries the blocks in emission order.
type Response struct {
	Blocks     []Block
	StopReason string
	Usage      Usage
}

// ToolCalls returns the tool calls of r in emission order.
func (r *Response) ToolCalls() []ToolCall {
	var out []ToolCall
	for _, b := range r.Blocks {
		if tc, ok := b.(ToolCall); ok {
			out = append(out, tc)
		}
	}
	return out
}

// Service sends a conversation to a model.
type Service interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// ToParams converts blocks back into assistant content for a later request.
func ToParams(blocks []Block) []anthropic.ContentBlockParamUnion {
	out := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch v := b.(type) {
		case Reasoning:
			if v.Redacted != "" {
				out = append(out, anthropic.NewRedactedThinkingBlock(v.Redacted))
			} else {
				out = append(out, anthropic.NewThinkingBlock(v.Signature, v.Text))
			}
		case Text:
			if v.Text != "" {
				out = append(out, anthropic.NewTextBlock(v.Text))
			}
		case ToolCall:
			input := v.Input
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			out = append(out, anthropic.NewToolUseBlock(v.ID, input, v.Name))
		}
	}
	return out
}
