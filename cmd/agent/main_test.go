package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petasbytes/paper-agent/internal/config"
	"github.com/petasbytes/paper-agent/internal/session"
	"github.com/petasbytes/paper-agent/memory"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.AnthropicAPIKey = "test-key"
	cfg.UploadDir = filepath.Join(t.TempDir(), "uploads")
	cfg.EventsDir = filepath.Join(t.TempDir(), "events")
	cfg.ObserveJSON = true
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestWire_BuildsEmptySession(t *testing.T) {
	a, err := wire(testConfig(t), "", prometheus.NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	defer a.close()

	assert.Empty(t, a.sess.Documents())
	_, err = a.sess.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, session.ErrNoDocuments)
}

func TestWire_LoadsTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.json")
	turns := []memory.Turn{{Speaker: memory.User, Text: "q"}, {Speaker: memory.Agent, Text: "a"}}
	require.NoError(t, memory.SaveTranscript(path, turns))

	a, err := wire(testConfig(t), path, prometheus.NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	defer a.close()
	assert.Equal(t, turns, a.sess.Conversation())
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF"), 0o644))

	files, err := readFiles([]string{p})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "paper.pdf", files[0].Name)

	_, err = readFiles([]string{filepath.Join(dir, "missing.pdf")})
	assert.Error(t, err)
}
