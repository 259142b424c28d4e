package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	User  Speaker = "user"
	Agent Speaker = "agent"
)

// Label is the display prefix used by interactive surfaces.
func (s Speaker) Label() string {
	switch s {
	case User:
		return "User"
	case Agent:
		return "Agent"
	default:
		return string(s)
	}
}

// Turn is one entry in the conversation log.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text,omitempty"`
}

// Log is append-only. The zero value is ready to use.
// It is not safe for concurrent use; a session has a single writer.
type Log struct {
	turns []Turn
}

// NewLog returns a log seeded with prior turns (e.g. a loaded transcript).
func NewLog(seed ...Turn) *Log {
	l := &Log{}
	l.turns = append(l.turns, seed...)
	return l
}

// Append adds a turn at the end of the log.
func (l *Log) Append(t Turn) {
	l.turns = append(l.turns, t)
}

// All returns a snapshot of the turns, oldest first. Later appends are not
// reflected in the returned slice.
func (l *Log) All() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len reports the number of turns.
func (l *Log) Len() int { return len(l.turns) }

// LoadTranscript reads a JSON transcript. A missing file yields nil, nil.
func LoadTranscript(path string) ([]Turn, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var turns []Turn
	if err := json.Unmarshal(b, &turns); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", path, err)
	}
	return turns, nil
}

// SaveTranscript writes turns as indented JSON. The file is written to a temp
// file in the same directory and renamed into place, so a crash mid-write
// leaves the previous transcript intact.
func SaveTranscript(path string, turns []Turn) error {
	b, err := json.MarshalIndent(turns, "", " ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".transcript-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close transcript: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod transcript: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename transcript: %w", err)
	}
	return nil
}
