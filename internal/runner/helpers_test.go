package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/paper-agent/internal/runner"
	"github.com/petasbytes/paper-agent/internal/tokens"
	"github.com/petasbytes/paper-agent/internal/windowing"
	"github.com/petasbytes/paper-agent/tools"
)

// scriptedTransport answers each request with the next scripted response and
// records every request body. The last response repeats once the script runs out.
type scriptedTransport struct {
	mu        sync.Mutex
	status    int
	responses []string
	bodies    [][]byte
}

func (f *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()

	f.mu.Lock()
	f.bodies = append(f.bodies, b)
	i := min(len(f.bodies)-1, len(f.responses)-1)
	body := f.responses[i]
	f.mu.Unlock()

	status := f.status
	if status == 0 {
		status = 200
	}
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func (f *scriptedTransport) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

func (f *scriptedTransport) request(t *testing.T, i int) reqBody {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.bodies) {
		t.Fatalf("request %d not sent (have %d)", i, len(f.bodies))
	}
	var rb reqBody
	if err := json.Unmarshal(f.bodies[i], &rb); err != nil {
		t.Fatalf("unmarshal body: %v\nbody=%s", err, string(f.bodies[i]))
	}
	return rb
}

type reqBody struct {
	System []struct {
		Text string `json:"text"`
	} `json:"system"`
	Tools []struct {
		Name string `json:"name"`
	} `json:"tools"`
	Messages []struct {
		Role    string        `json:"role"`
		Content []contentItem `json:"content"`
	} `json:"messages"`
}

type contentItem struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

func newClientWithTransport(rt http.RoundTripper) *anthropic.Client {
	c := anthropic.NewClient(
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &c
}

func newRunner(rt http.RoundTripper, budget int) *runner.Runner {
	return &runner.Runner{
		Client:  newClientWithTransport(rt),
		Budget:  budget,
		Counter: windowing.MessageCounter{Text: tokens.Runes{}},
	}
}

func textResponse(text string) string {
	b, _ := json.Marshal(map[string]any{
		"id": "msg_text", "type": "message", "role": "assistant", "model": "m",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]int{"input_tokens": 1, "output_tokens": 1},
	})
	return string(b)
}

func toolUseResponse(id, name string, input map[string]any) string {
	b, _ := json.Marshal(map[string]any{
		"id": "msg_tool", "type": "message", "role": "assistant", "model": "m",
		"content":     []map[string]any{{"type": "tool_use", "id": id, "name": name, "input": input}},
		"stop_reason": "tool_use",
		"usage":       map[string]int{"input_tokens": 1, "output_tokens": 1},
	})
	return string(b)
}

type fakeSearcher struct{ passages []tools.Passage }

func (f fakeSearcher) Search(context.Context, string, int, []string) ([]tools.Passage, error) {
	return f.passages, nil
}

type fixedGenerator struct{ out string }

func (g fixedGenerator) Generate(context.Context, string) (string, error) { return g.out, nil }

func paperTools(doc string) []tools.Tool {
	return tools.Pair{
		Vector: tools.NewVectorTool(doc,
			fakeSearcher{passages: []tools.Passage{{Text: "Training used eight GPUs.", Page: "2"}}},
			fixedGenerator{out: "Eight GPUs were used."}),
		Summary: tools.NewSummaryTool(doc, []string{"A paper about attention."}, fixedGenerator{out: "It is about attention."}, 0),
	}.Tools()
}

type fakeRetriever struct {
	tools []tools.Tool
	err   error
	calls int
}

func (f *fakeRetriever) Retrieve(context.Context, string, int) ([]tools.Tool, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tools, nil
}

var errRetrieval = errors.New("retrieval failed")
