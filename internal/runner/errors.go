package runner

import (
	"errors"
	"fmt"
)

var (
	ErrStepLimit      = errors.New("agent step limit exceeded")
	ErrNoAnswer       = errors.New("model returned no answer text")
	ErrWindowOverflow = errors.New("windowing: newest group exceeds token budget; increase token_budget")
)

// AgentExecutionError wraps any failure that prevented Query from being answered.
type AgentExecutionError struct {
	Query string
	Err   error
}

func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("agent failed to answer %q: %v", e.Query, e.Err)
}

func (e *AgentExecutionError) Unwrap() error { return e.Err }
