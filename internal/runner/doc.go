// Package runner drives the play loop: one turn captures a frame, asks the
// model what to do, dispatches the requested tools and records the outcome.
//
// States:
//
//	Idle -> CapturingFrame -> AwaitingModel -> DispatchingTools -> Advancing -> Idle
//
// Any state may move to Stopped on a fatal service error or shutdown.
//
// Invariant:
//   - every tool_use in a turn is answered by a tool_result in the same
//     turn record, so a rendered window never splits a tool pair.
package runner
