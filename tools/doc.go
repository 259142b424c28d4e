// Package tools defines the per-document tools handed to the agent.
//
// Includes:
//   - Tool: a sealed interface with two variants, VectorTool and SummaryTool.
//   - GenerateSchema[T](): derive a JSON input schema from Go structs.
//   - Registry: document name -> (VectorTool, SummaryTool), grows monotonically.
//   - Invariants: every registered document contributes exactly two tools, and
//     tool names are valid Messages API tool names.
package tools
