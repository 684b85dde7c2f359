package memory

import (
	"encoding/json"
	"time"
)

// Thought is one reasoning block returned by the model. Signature and
// Redacted are opaque and must be sent back unchanged.
type Thought struct {
	Text      string `json:"text,omitempty"`
	Signature string `json:"signature,omitempty"`
	Redacted  string `json:"redacted,omitempty"`
}

// ToolInvocation pairs a tool call emitted by the model with its outcome.
type ToolInvocation struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input,omitempty"`
	Output  string          `json:"output"`
	IsError bool            `json:"is_error,omitempty"`
}

// TurnRecord is the immutable trace of one completed turn. A record with
// Summary set is synthetic: Text carries the summary and Index the last turn
// it covers.
type TurnRecord struct {
	Index       int              `json:"index"`
	Screenshot  string           `json:"screenshot,omitempty"`
	Reasoning   []Thought        `json:"reasoning,omitempty"`
	Text        string           `json:"text,omitempty"`
	Invocations []ToolInvocation `json:"invocations,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	Summary     bool             `json:"summary,omitempty"`
}

// Context is the short-term memory: an ordered window of turn records.
//
// Invariants:
//   - at most max live (non-summary) records are held; the oldest live
//     record is evicted first
//   - at most one summary record exists and it is always first
//   - records are ordered by Index
type Context struct {
	max     int
	records []TurnRecord
}

// NewContext returns a context holding at most max live records. A max below
// 1 is treated as 1.
func NewContext(max int) *Context {
	if max < 1 {
		max = 1
	}
	return &Context{max: max}
}

// Max is the configured live-record bound.
func (c *Context) Max() int { return c.max }

// Append adds a record, evicting the oldest live record on overflow.
func (c *Context) Append(rec TurnRecord) {
	c.records = append(c.records, rec)
	for c.live() > c.max {
		i := 0
		if c.records[0].Summary {
			i = 1
		}
		c.records = append(c.records[:i], c.records[i+1:]...)
	}
}

// Window returns a copy of the held records, oldest first.
func (c *Context) Window() []TurnRecord {
	out := make([]TurnRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Len counts held records, including a summary record.
func (c *Context) Len() int { return len(c.records) }

// Summary returns the current summary record, if any.
func (c *Context) Summary() (TurnRecord, bool) {
	if len(c.records) > 0 && c.records[0].Summary {
		return c.records[0], true
	}
	return TurnRecord{}, false
}

// Compact replaces every record with Index <= boundary, including an older
// summary, by a single summary record carrying text. It reports whether the
// context changed; calling it again with the same boundary is a no-op.
func (c *Context) Compact(boundary int, text string, at time.Time) bool {
	cut := 0
	for cut < len(c.records) && c.records[cut].Index <= boundary {
		cut++
	}
	if cut == 0 {
		return false
	}
	if cut == 1 && c.records[0].Summary && c.records[0].Index == boundary {
		return false
	}
	summary := TurnRecord{Index: boundary, Text: text, Timestamp: at, Summary: true}
	rest := c.records[cut:]
	records := make([]TurnRecord, 0, len(rest)+1)
	records = append(records, summary)
	records = append(records, rest...)
	c.records = records
	return true
}

func (c *Context) live() int {
	n := len(c.records)
	if n > 0 && c.records[0].Summary {
		n--
	}
	return n
}
