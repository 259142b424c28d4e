// Package telemetry writes structured JSONL events describing document
// indexing, tool retrieval and agent turns. Events carry the session and turn
// IDs found in the context. Raw user text is never written.
package telemetry
