package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/petasbytes/paper-agent/internal/metrics"
	"github.com/petasbytes/paper-agent/internal/tokens"
)

// EventsFile is the JSONL file name written under the events directory.
const EventsFile = "events.jsonl"

// Event names.
const (
	EventDocumentIndexed = "document_indexed"
	EventToolsRetrieved  = "tools_retrieved"
	EventWindowPrepared  = "window_prepared"
	EventToolExec        = "tool_exec"
	EventTurnCompleted   = "turn_completed"
	EventTurnFailed      = "turn_failed"
	EventLocalFeatures   = "local_features"
)

// Recorder emits one JSON object per line. A nil *Recorder drops every event.
type Recorder struct {
	log  *zap.Logger
	sink *lumberjack.Logger
}

// Open returns a Recorder appending to dir/events.jsonl, rotating at 10 MB.
func Open(dir string) (*Recorder, error) {
	if dir == "" {
		dir = ".agent"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: mkdir %s: %w", dir, err)
	}
	sink := &lumberjack.Logger{
		Filename:   filepath.Join(dir, EventsFile),
		MaxSize:    10,
		MaxBackups: 3,
	}
	r := NewWithSink(zapcore.AddSync(sink))
	r.sink = sink
	return r, nil
}

// NewWithSink returns a Recorder writing to ws.
func NewWithSink(ws zapcore.WriteSyncer) *Recorder {
	enc := zapcore.EncoderConfig{
		TimeKey:        "time",
		MessageKey:     "event",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, zapcore.DebugLevel)
	return &Recorder{log: zap.New(core)}
}

// Emit writes event with fields plus the session and turn IDs carried by ctx.
func (r *Recorder) Emit(ctx context.Context, event string, fields ...zap.Field) {
	if r == nil {
		return
	}
	if id, ok := SessionIDFromContext(ctx); ok {
		fields = append(fields, zap.String("session_id", id))
	}
	if id, ok := TurnIDFromContext(ctx); ok {
		fields = append(fields, zap.String("turn_id", id))
	}
	r.log.Info(event, fields...)
}

// EmitLocalFeatures records size features of a user query without its text.
func (r *Recorder) EmitLocalFeatures(ctx context.Context, query string, c tokens.Counter) {
	if r == nil {
		return
	}
	f := metrics.CountFeatures(query, c)
	r.Emit(ctx, EventLocalFeatures,
		zap.String("features_version", "2"),
		zap.Any("user", f),
	)
}

// Close flushes buffered events and closes the underlying file, if any.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	_ = r.log.Sync()
	if r.sink != nil {
		return r.sink.Close()
	}
	return nil
}
