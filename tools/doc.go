// Package tools defines tool contracts and the game-agent tool set.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: a closed set of definitions validated at construction and
//     dispatched by name.
//   - Game tools: send_inputs, set_game, set_current_goal, add_to_memory,
//     remove_from_memory, update_memory_item, search_memory.
//   - Invariants: every handler validates its input fully before any side
//     effect; failures are returned as *ToolError with a stable code.
package tools
