// Package windowing selects which past turns fit in the model's input budget.
//
// A Group is one turn record rendered to messages. Groups are never split, so
// a tool_use and its tool_result always travel together. Pinned groups (the
// running summary) are always sent.
package windowing
