// Package memory holds the session conversation log.
//
// Model:
//   - A Log is an ordered, append-only sequence of (speaker, text) turns.
//   - Only text is kept; tool blocks stay inside a single agent turn.
//   - Transcripts can be exported to and re-read from JSON.
package memory
