package runner

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petasbytes/paper-agent/internal/telemetry"
	"github.com/petasbytes/paper-agent/internal/tokens"
	"github.com/petasbytes/paper-agent/memory"
	"github.com/petasbytes/paper-agent/tools"
)

// DefaultMaxSteps bounds model round-trips per query.
const DefaultMaxSteps = 8

// ToolRetriever selects candidate tools for a query.
type ToolRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]tools.Tool, error)
}

// Agent answers one query at a time against the tools a retriever offers.
type Agent struct {
	Runner   *Runner
	Model    anthropic.Model
	MaxSteps int
	TopK     int
	// Features counts tokens for the local_features event. Nil skips token counts.
	Features tokens.Counter
}

// Answer retrieves candidate tools, runs the tool loop until the model
// produces a text answer, and on success appends the user and agent turns to
// log. On failure log is untouched and the error is an *AgentExecutionError.
func (a *Agent) Answer(ctx context.Context, query string, retriever ToolRetriever, log *memory.Log) (string, error) {
	if _, ok := telemetry.TurnIDFromContext(ctx); !ok {
		ctx = telemetry.WithTurnID(ctx, uuid.NewString())
	}
	r := a.Runner
	start := time.Now()
	steps := 0
	fail := func(err error) (string, error) {
		r.Metrics.ObserveQuery(err, steps, time.Since(start))
		r.Recorder.Emit(ctx, telemetry.EventTurnFailed,
			zap.Int("steps", steps),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", err.Error()),
		)
		return "", &AgentExecutionError{Query: query, Err: err}
	}

	r.Recorder.EmitLocalFeatures(ctx, query, a.Features)

	topK := a.TopK
	if topK <= 0 {
		topK = 3
	}
	candidates, err := retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return fail(err)
	}
	r.Recorder.Emit(ctx, telemetry.EventToolsRetrieved,
		zap.Int("count", len(candidates)),
		zap.Strings("tools", toolNames(candidates)),
	)

	conv := replay(log.All())
	conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(query)))

	maxSteps := a.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	for steps < maxSteps {
		steps++
		msg, toolResults, err := r.RunOneStep(ctx, a.Model, conv, candidates)
		if err != nil {
			return fail(err)
		}
		conv = append(conv, msg.ToParam())

		if len(toolResults) > 0 {
			conv = append(conv, anthropic.NewUserMessage(toolResults...))
			continue
		}

		answer := strings.TrimSpace(messageText(msg))
		if answer == "" {
			return fail(ErrNoAnswer)
		}
		log.Append(memory.Turn{Speaker: memory.User, Text: query})
		log.Append(memory.Turn{Speaker: memory.Agent, Text: answer})

		r.Metrics.ObserveQuery(nil, steps, time.Since(start))
		r.Recorder.Emit(ctx, telemetry.EventTurnCompleted,
			zap.Int("steps", steps),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("answer_size", len(answer)),
			zap.String("stop_reason", string(msg.StopReason)),
		)
		return answer, nil
	}
	return fail(ErrStepLimit)
}

// replay converts logged turns into alternating text messages.
func replay(turns []memory.Turn) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(turns)+1)
	for _, t := range turns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		switch t.Speaker {
		case memory.User:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		case memory.Agent:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		}
	}
	return out
}

func messageText(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tb.Text)
		}
	}
	return sb.String()
}

func toolNames(ts []tools.Tool) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name()
	}
	return out
}
