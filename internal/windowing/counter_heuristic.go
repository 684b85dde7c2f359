package windowing

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m anthropic.MessageParam) int
	CountGroup(g Group) int
}

// FrameImageCost approximates one upscaled Game Boy frame in counter units.
const FrameImageCost = 1200

// blockOverhead is added once per content block; the guard test pins it.
const blockOverhead = 4

// HeuristicCounter is a deterministic estimator measured in runes:
//   - text, thinking: rune count of the text
//   - tool_use: rune count of the JSON input
//   - tool_result: rune count of nested text blocks (nested images cost ImageCost)
//   - image: ImageCost
//
// Every block also pays a fixed overhead. The zero value prices images at the
// overhead alone.
type HeuristicCounter struct {
	ImageCost int
}

func (h HeuristicCounter) CountMessage(m anthropic.MessageParam) int {
	total := 0
	for _, blk := range m.Content {
		total += h.countBlock(blk)
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group) int {
	total := 0
	for _, m := range g.Messages {
		total += h.CountMessage(m)
	}
	return total
}

func (h HeuristicCounter) countBlock(blk anthropic.ContentBlockParamUnion) int {
	switch {
	case blk.OfText != nil:
		return utf8.RuneCountInString(blk.OfText.Text) + blockOverhead
	case blk.OfThinking != nil:
		return utf8.RuneCountInString(blk.OfThinking.Thinking) + blockOverhead
	case blk.OfToolUse != nil:
		return inputRunes(blk.OfToolUse.Input) + blockOverhead
	case blk.OfImage != nil:
		return h.ImageCost + blockOverhead
	case blk.OfToolResult != nil:
		n := 0
		for _, nb := range blk.OfToolResult.Content {
			switch {
			case nb.OfText != nil:
				n += utf8.RuneCountInString(nb.OfText.Text)
			case nb.OfImage != nil:
				n += h.ImageCost
			}
		}
		return n + blockOverhead
	}
	// redacted thinking and anything newer
	return blockOverhead
}

func inputRunes(in any) int {
	switch v := in.(type) {
	case nil:
		return 0
	case json.RawMessage:
		return utf8.RuneCount(v)
	case []byte:
		return utf8.RuneCount(v)
	}
	b, err := json.Marshal(in)
	if err != nil {
		return 0
	}
	return utf8.RuneCount(b)
}
