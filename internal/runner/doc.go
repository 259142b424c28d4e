// Package runner answers user queries with a tool-calling agent loop over
// the Anthropic Messages API.
//
// Invariant:
//   - tool_use and the corresponding tool_result are kept adjacent within a turn
//     to preserve execution context and simplify follow-up reasoning.
//   - the conversation log changes only when a query is answered.
//
// Flow:
//
//	user(text) -> assistant(tool_use) -> user(tool_result) -> ... -> assistant(text)
package runner
