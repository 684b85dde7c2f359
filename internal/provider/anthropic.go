package provider

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel = anthropic.ModelClaude3_7SonnetLatest
	APIVersion   = "2023-06-01"

	// efficientToolsBeta enables token-efficient tool use.
	efficientToolsBeta = "token-efficient-tools-2025-02-19"
)

// NewAnthropicClient returns a client using the API key from the env. SDK
// retries are disabled; callers retry explicitly.
func NewAnthropicClient(opts ...option.RequestOption) *anthropic.Client {
	opts = append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)
	c := anthropic.NewClient(opts...)
	return &c
}

// Anthropic implements Service over the Messages API.
type Anthropic struct {
	Client *anthropic.Client
	Logger *slog.Logger
}

// NewAnthropic wraps client.
func NewAnthropic(client *anthropic.Client, logger *slog.Logger) *Anthropic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Anthropic{Client: client, Logger: logger}
}

func (a *Anthropic) Send(ctx context.Context, req Request) (*Response, error) {
	params := a.params(req)

	var reqOpts []option.RequestOption
	if req.Mode.EfficientTools {
		reqOpts = append(reqOpts, option.WithHeaderAdd("anthropic-beta", efficientToolsBeta))
	}

	msg, err := a.Client.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		StopReason: string(msg.StopReason),
		Usage:      Usage{InputTokens: msg.Usage.InputTokens, OutputTokens: msg.Usage.OutputTokens},
	}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.ThinkingBlock:
			resp.Blocks = append(resp.Blocks, Reasoning{Text: v.Thinking, Signature: v.Signature})
		case anthropic.RedactedThinkingBlock:
			resp.Blocks = append(resp.Blocks, Reasoning{Redacted: v.Data})
		case anthropic.TextBlock:
			resp.Blocks = append(resp.Blocks, Text{Text: v.Text})
		case anthropic.ToolUseBlock:
			// Pass raw JSON input through to the tool implementation
			resp.Blocks = append(resp.Blocks, ToolCall{ID: v.ID, Name: v.Name, Input: json.RawMessage(v.JSON.Input.Raw())})
		default:
			a.Logger.Warn("ignoring unsupported content block", "type", block.Type)
		}
	}
	return resp, nil
}

func (a *Anthropic) params(req Request) anthropic.MessageNewParams {
	model := req.Mode.Model
	if model == "" {
		model = string(DefaultModel)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: req.Mode.MaxTokens,
		Messages:  req.Messages,
		Tools:     req.Tools,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Mode.Thinking {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(req.Mode.ThinkingBudget)
	}
	if req.DisableTools && len(req.Tools) > 0 {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	}
	return params
}
