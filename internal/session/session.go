// Package session holds the per-user state of one conversation: uploaded
// documents, their tools, the tool retriever, the conversation log and the
// pending query. A Session has a single writer; callers serialise access.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/petasbytes/paper-agent/internal/config"
	"github.com/petasbytes/paper-agent/internal/metrics"
	"github.com/petasbytes/paper-agent/internal/runner"
	"github.com/petasbytes/paper-agent/internal/telemetry"
	"github.com/petasbytes/paper-agent/internal/toolindex"
	"github.com/petasbytes/paper-agent/internal/uploads"
	"github.com/petasbytes/paper-agent/memory"
	"github.com/petasbytes/paper-agent/tools"
)

var (
	ErrNoDocuments = errors.New("no documents available")
	ErrNoQuery     = errors.New("no pending query")
	ErrClosed      = errors.New("session closed")

	// ErrIndexStale means documents are registered but the tool index could
	// not be rebuilt. The next Submit retries the rebuild.
	ErrIndexStale = errors.New("tool index rebuild failed")
)

// DocumentBuilder turns a stored upload into its tool pair. *docs.Builder implements it.
type DocumentBuilder interface {
	Build(ctx context.Context, path, name string) (tools.Pair, error)
}

// Answerer runs the agent loop. *runner.Agent implements it.
type Answerer interface {
	Answer(ctx context.Context, query string, retriever runner.ToolRetriever, log *memory.Log) (string, error)
}

// Deps are the collaborators a Session needs. Store, Builder, Agent and Embed are required.
type Deps struct {
	Store   *uploads.Store
	Builder DocumentBuilder
	Agent   Answerer
	// Embed embeds tool descriptions for the tool retriever.
	Embed chromem.EmbeddingFunc

	// Workers bounds concurrent document builds. Values below 1 mean 1.
	Workers int
	// Policy is config.PolicySkip (default) or config.PolicyAbort.
	Policy string

	// History seeds the conversation log, e.g. from a saved transcript.
	History []memory.Turn

	Recorder *telemetry.Recorder
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

type Session struct {
	id        string
	deps      Deps
	log       *zap.Logger
	registry  *tools.Registry
	retriever *toolindex.Retriever
	// stale is set when the registry changed but the retriever rebuild failed.
	stale bool

	conversation *memory.Log
	pending      string
	hasPending   bool
	closed       bool
}

// New starts a session with an empty registry and no retriever.
func New(d Deps) (*Session, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("session: missing upload store")
	case d.Builder == nil:
		return nil, errors.New("session: missing document builder")
	case d.Agent == nil:
		return nil, errors.New("session: missing agent")
	case d.Embed == nil:
		return nil, errors.New("session: missing embedding function")
	}
	if d.Workers < 1 {
		d.Workers = 1
	}
	if d.Policy == "" {
		d.Policy = config.PolicySkip
	}
	if d.Policy != config.PolicySkip && d.Policy != config.PolicyAbort {
		return nil, fmt.Errorf("session: unknown load error policy %q", d.Policy)
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	id := uuid.NewString()
	return &Session{
		id:           id,
		deps:         d,
		log:          log.Named("session").With(zap.String("session_id", id)),
		registry:     tools.NewRegistry(),
		conversation: memory.NewLog(d.History...),
	}, nil
}

func (s *Session) ID() string { return s.id }

// Documents lists the registered document names in sorted order.
func (s *Session) Documents() []string { return s.registry.Documents() }

// Conversation returns a snapshot of the log.
func (s *Session) Conversation() []memory.Turn { return s.conversation.All() }

// SetQuery replaces the pending query.
func (s *Session) SetQuery(q string) {
	s.pending, s.hasPending = q, true
}

// PendingQuery returns the pending query, if any.
func (s *Session) PendingQuery() (string, bool) { return s.pending, s.hasPending }

// Submit consumes the pending query and answers it. The pending query is
// cleared whatever the outcome. With no documents registered nothing is
// retrieved or sent to the model and ErrNoDocuments is returned.
func (s *Session) Submit(ctx context.Context) (string, error) {
	if s.closed {
		return "", ErrClosed
	}
	q, ok := s.pending, s.hasPending
	s.pending, s.hasPending = "", false
	if !ok || strings.TrimSpace(q) == "" {
		return "", ErrNoQuery
	}
	if s.registry.Len() == 0 {
		return "", ErrNoDocuments
	}

	ctx = telemetry.WithSessionID(ctx, s.id)
	if s.stale || s.retriever == nil {
		if err := s.rebuildRetriever(ctx); err != nil {
			return "", &runner.AgentExecutionError{Query: q, Err: err}
		}
	}
	answer, err := s.deps.Agent.Answer(ctx, q, s.retriever, s.conversation)
	if err != nil {
		s.log.Warn("query failed", zap.Error(err))
		return "", err
	}
	return answer, nil
}

// Ask sets q as the pending query and submits it.
func (s *Session) Ask(ctx context.Context, q string) (string, error) {
	s.SetQuery(q)
	return s.Submit(ctx)
}

// Close ends the session. Further uploads and queries fail with ErrClosed.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending, s.hasPending = "", false
	s.retriever = nil
	s.log.Debug("session closed", zap.Int("turns", s.conversation.Len()))
	return nil
}

func (s *Session) rebuildRetriever(ctx context.Context) error {
	r, err := toolindex.Build(ctx, s.registry.AllTools(), s.deps.Embed)
	if err != nil {
		s.stale = true
		return fmt.Errorf("%w: %w", ErrIndexStale, err)
	}
	s.retriever, s.stale = r, false
	return nil
}
