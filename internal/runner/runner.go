package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/petasbytes/paper-agent/internal/metrics"
	"github.com/petasbytes/paper-agent/internal/provider"
	"github.com/petasbytes/paper-agent/internal/safety"
	"github.com/petasbytes/paper-agent/internal/telemetry"
	"github.com/petasbytes/paper-agent/internal/tokens"
	"github.com/petasbytes/paper-agent/internal/windowing"
	"github.com/petasbytes/paper-agent/tools"
)

// SystemPrompt forbids answering from the model's own knowledge.
const SystemPrompt = "You are an agent designed to answer queries over a set of given papers. " +
	"Please always use the tools provided to answer a question. Do not rely on prior knowledge."

// Runner performs single model round-trips and executes the requested tools.
type Runner struct {
	Client    *anthropic.Client
	MaxTokens int64
	// Budget is the input-token budget for the send window.
	Budget   int
	Counter  windowing.MessageCounter
	Recorder *telemetry.Recorder
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

func anthropicTools(ts []tools.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(ts))
	for _, t := range ts {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name(),
			Description: anthropic.String(t.Description()),
			InputSchema: t.InputSchema(),
		}})
	}
	return out
}

// RunOneStep sends the budgeted window of conv with ts offered as tools, then
// executes every tool_use in the reply. The returned results belong in one user
// message directly after the assistant message.
func (r *Runner) RunOneStep(ctx context.Context, model anthropic.Model, conv []anthropic.MessageParam, ts []tools.Tool) (*anthropic.Message, []anthropic.ContentBlockParamUnion, error) {
	counter := r.Counter
	if counter.Text == nil {
		counter.Text = tokens.Default()
	}
	window, stats := windowing.PrepareSendWindow(conv, r.Budget, counter)
	r.Recorder.Emit(ctx, telemetry.EventWindowPrepared,
		zap.String("model", string(model)),
		zap.Int("budget", stats.Budget),
		zap.Int("total_estimated", stats.Total),
		zap.Int("included_groups", stats.IncludedGroups),
		zap.Int("skipped_groups", stats.SkippedGroups),
		zap.Bool("over_budget_newest", stats.OverBudgetNewest),
	)
	r.logger().Debug("window prepared",
		zap.Int("budget", stats.Budget),
		zap.Int("est_total", stats.Total),
		zap.Int("groups_in", stats.IncludedGroups),
		zap.Int("groups_skip", stats.SkippedGroups),
	)
	if stats.OverBudgetNewest {
		return nil, nil, ErrWindowOverflow
	}

	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = provider.DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: SystemPrompt}},
		Messages:  window,
	}
	if len(ts) > 0 {
		params.Tools = anthropicTools(ts)
	}

	msg, err := r.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	toolResults := []anthropic.ContentBlockParamUnion{}
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			// Pass raw JSON input through to the tool implementation
			input := json.RawMessage(v.JSON.Input.Raw())
			toolResults = append(toolResults, r.execTool(ctx, ts, v.ID, v.Name, input))
		}
	}
	return msg, toolResults, nil
}

func (r *Runner) execTool(ctx context.Context, ts []tools.Tool, id, name string, input json.RawMessage) anthropic.ContentBlockParamUnion {
	var tool tools.Tool
	for _, t := range ts {
		if t.Name() == name {
			tool = t
			break
		}
	}

	start := time.Now()
	emit := func(kind string, outputSize int, errCode string) {
		fields := []zap.Field{
			zap.String("tool_name", name),
			zap.String("tool_kind", kind),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("input_size", len(input)),
			zap.Int("output_size", outputSize),
		}
		if errCode != "" {
			fields = append(fields, zap.String("error", errCode))
		}
		r.Recorder.Emit(ctx, telemetry.EventToolExec, fields...)
	}

	if tool == nil {
		err := safety.ToolError{Code: safety.CodeToolNotFound, Message: fmt.Sprintf("tool %q is not available for this query", name)}
		emit("unknown", 0, err.Code)
		return anthropic.NewToolResultBlock(id, err.Error(), true)
	}

	kind := tool.Kind().String()
	resp, err := tool.Invoke(ctx, input)
	r.Metrics.ToolInvoked(kind, err)
	if err != nil {
		// Only the error code goes to telemetry; the model gets the full message.
		emit(kind, 0, errorCode(err))
		r.logger().Warn("tool failed", zap.String("tool", name), zap.Error(err))
		return anthropic.NewToolResultBlock(id, err.Error(), true)
	}
	emit(kind, len(resp), "")
	return anthropic.NewToolResultBlock(id, resp, false)
}

func errorCode(err error) string {
	var te safety.ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return "tool error"
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}
