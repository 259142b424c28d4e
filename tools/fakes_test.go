package tools_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/petasbytes/paper-agent/tools"
)

type fakeSearcher struct {
	passages []tools.Passage
	err      error

	gotQuery string
	gotTopK  int
	gotPages []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, topK int, pages []string) ([]tools.Passage, error) {
	f.gotQuery, f.gotTopK, f.gotPages = query, topK, pages
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

// echoGenerator records prompts and answers with a fixed prefix plus the call number.
type echoGenerator struct {
	mu      sync.Mutex
	prompts []string
	fail    bool
}

func (g *echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return "", errors.New("backend unreachable")
	}
	g.prompts = append(g.prompts, prompt)
	return "summary-" + strings.Repeat("x", len(g.prompts)), nil
}

func (g *echoGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func newPair(doc string) tools.Pair {
	return tools.Pair{
		Vector:  tools.NewVectorTool(doc, &fakeSearcher{}, &echoGenerator{}),
		Summary: tools.NewSummaryTool(doc, []string{"chunk"}, &echoGenerator{}, 0),
	}
}
