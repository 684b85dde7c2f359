// Package memory holds the agent's two memories.
//
// Long-term: Store, a categorized key/value map the model edits through tools
// and that is rendered, sorted, into every prompt.
//
// Short-term: Context, a bounded window of TurnRecords. Compaction folds
// everything up to a boundary into one summary record so a session can run
// indefinitely inside a fixed context budget.
package memory
