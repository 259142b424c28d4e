package telemetry_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/petasbytes/paper-agent/internal/metrics"
	"github.com/petasbytes/paper-agent/internal/telemetry"
	"github.com/petasbytes/paper-agent/internal/tokens"
)

func decodeLines(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	s := bufio.NewScanner(bytes.NewReader(b))
	for s.Scan() {
		txt := strings.TrimSpace(s.Text())
		if txt == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(txt), &m))
		out = append(out, m)
	}
	return out
}

func TestEmit_AddsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	r := telemetry.NewWithSink(zapcore.AddSync(&buf))

	ctx := telemetry.WithSessionID(context.Background(), "sess-1")
	ctx = telemetry.WithTurnID(ctx, "turn-9")
	r.Emit(ctx, telemetry.EventToolsRetrieved, zap.Int("count", 3), zap.Strings("tools", []string{"a", "b", "c"}))

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	m := lines[0]
	assert.Equal(t, "tools_retrieved", m["event"])
	assert.Equal(t, "sess-1", m["session_id"])
	assert.Equal(t, "turn-9", m["turn_id"])
	assert.Equal(t, float64(3), m["count"])
	assert.NotEmpty(t, m["time"])
	assert.NotContains(t, m, "level")
}

func TestEmit_NoIDsWhenAbsent(t *testing.T) {
	var buf bytes.Buffer
	r := telemetry.NewWithSink(zapcore.AddSync(&buf))
	r.Emit(context.Background(), telemetry.EventTurnFailed)

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "turn_id")
	assert.NotContains(t, lines[0], "session_id")
}

func TestEmitLocalFeatures_NoRawText(t *testing.T) {
	var buf bytes.Buffer
	r := telemetry.NewWithSink(zapcore.AddSync(&buf))
	query := "what does the paper propose"

	r.EmitLocalFeatures(telemetry.WithTurnID(context.Background(), "t1"), query, tokens.Runes{})

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	m := lines[0]
	assert.Equal(t, "local_features", m["event"])

	want := metrics.CountFeatures(query, tokens.Runes{})
	user, ok := m["user"].(map[string]any)
	require.True(t, ok, "user field: %T", m["user"])
	assert.Equal(t, float64(want.Words), user["words"])
	assert.Equal(t, float64(want.Tokens), user["tokens"])
	assert.NotContains(t, buf.String(), query)
}

func TestOpen_WritesEventsFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "events")
	r, err := telemetry.Open(dir)
	require.NoError(t, err)

	r.Emit(context.Background(), telemetry.EventDocumentIndexed, zap.String("document", "paper"))
	require.NoError(t, r.Close())

	b, err := os.ReadFile(filepath.Join(dir, telemetry.EventsFile))
	require.NoError(t, err)
	lines := decodeLines(t, b)
	require.Len(t, lines, 1)
	assert.Equal(t, "paper", lines[0]["document"])
}

func TestNilRecorder(t *testing.T) {
	var r *telemetry.Recorder
	assert.NotPanics(t, func() {
		r.Emit(context.Background(), "x")
		r.EmitLocalFeatures(context.Background(), "q", nil)
		assert.NoError(t, r.Close())
	})
}
