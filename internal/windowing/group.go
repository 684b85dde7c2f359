package windowing

import "github.com/anthropics/anthropic-sdk-go"

// Group is the rendering of one turn record.
type Group struct {
	Index    int
	Pinned   bool
	Messages []anthropic.MessageParam
}

// Flatten concatenates group messages, merging adjacent messages that share a
// role so the result alternates user and assistant.
func Flatten(groups []Group) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, g := range groups {
		out = AppendMessages(out, g.Messages...)
	}
	return out
}

// AppendMessages appends msgs to dst with the same merging rule as Flatten.
func AppendMessages(dst []anthropic.MessageParam, msgs ...anthropic.MessageParam) []anthropic.MessageParam {
	for _, m := range msgs {
		if len(m.Content) == 0 {
			continue
		}
		if n := len(dst); n > 0 && dst[n-1].Role == m.Role {
			merged := make([]anthropic.ContentBlockParamUnion, 0, len(dst[n-1].Content)+len(m.Content))
			merged = append(merged, dst[n-1].Content...)
			merged = append(merged, m.Content...)
			dst[n-1] = anthropic.MessageParam{Role: m.Role, Content: merged}
			continue
		}
		dst = append(dst, m)
	}
	return dst
}
