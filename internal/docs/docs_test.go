package docs_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/paper-agent/internal/docs"
	"github.com/petasbytes/paper-agent/internal/embedtest"
	"github.com/petasbytes/paper-agent/internal/tokens"
	"github.com/petasbytes/paper-agent/tools"
)

type fakeExtractor struct {
	pages []docs.Page
	err   error
}

func (f fakeExtractor) Extract(context.Context, string) ([]docs.Page, error) {
	return f.pages, f.err
}

type fixedGenerator struct{ prompts []string }

func (g *fixedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return "generated answer", nil
}

var paperPages = []docs.Page{
	{Number: 1, Text: "Attention is all you need. The transformer replaces recurrence with self attention."},
	{Number: 2, Text: "Training used eight GPUs for twelve hours on the translation benchmark."},
	{Number: 3, Text: "Results show a BLEU score improvement on English to German translation."},
}

func newBuilder(ext docs.Extractor, gen tools.Generator) *docs.Builder {
	return &docs.Builder{
		Extractor:    ext,
		Splitter:     tokens.Runes{},
		ChunkSize:    200,
		ChunkOverlap: 20,
		Embed:        embedtest.BagOfWords(),
		Generator:    gen,
	}
}

func TestBuild_ReturnsNamedPair(t *testing.T) {
	gen := &fixedGenerator{}
	b := newBuilder(fakeExtractor{pages: paperPages}, gen)

	pair, err := b.Build(context.Background(), "/uploads/attention.pdf", "attention")
	require.NoError(t, err)
	assert.Equal(t, "vector_tool_attention", pair.Vector.Name())
	assert.Equal(t, "summary_tool_attention", pair.Summary.Name())
	assert.Equal(t, "attention", pair.Vector.Document())

	out, err := pair.Vector.Invoke(context.Background(), json.RawMessage(`{"query":"how many GPUs were used for training"}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "generated answer"))
	assert.Contains(t, out, "Sources: p.2")
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "eight GPUs")
}

func TestBuild_PageFilterRestrictsPassages(t *testing.T) {
	gen := &fixedGenerator{}
	pair, err := newBuilder(fakeExtractor{pages: paperPages}, gen).Build(context.Background(), "p.pdf", "p")
	require.NoError(t, err)

	out, err := pair.Vector.Invoke(context.Background(), json.RawMessage(`{"query":"GPUs","page_numbers":["3"]}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Sources: p.3")
	assert.NotContains(t, gen.prompts[0], "eight GPUs")
}

func TestBuild_Failures(t *testing.T) {
	cases := map[string]docs.Extractor{
		"extract error": fakeExtractor{err: errors.New("bad xref")},
		"no text":       fakeExtractor{pages: []docs.Page{{Number: 1, Text: "   "}}},
	}
	for name, ext := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newBuilder(ext, &fixedGenerator{}).Build(context.Background(), "/x/broken.pdf", "broken")
			var dle *docs.DocumentLoadError
			require.ErrorAs(t, err, &dle)
			assert.Equal(t, "broken", dle.Name)
			assert.Equal(t, "/x/broken.pdf", dle.Path)
		})
	}
}

func TestBuild_EmbeddingFailureIsLoadError(t *testing.T) {
	b := newBuilder(fakeExtractor{pages: paperPages}, &fixedGenerator{})
	b.Embed = func(context.Context, string) ([]float32, error) { return nil, errors.New("embedding server down") }

	_, err := b.Build(context.Background(), "a.pdf", "a")
	var dle *docs.DocumentLoadError
	require.ErrorAs(t, err, &dle)
	assert.Contains(t, err.Error(), "embedding server down")
}

func TestPDFExtractor_RejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	b := newBuilder(docs.PDFExtractor{}, &fixedGenerator{})
	_, err := b.Build(context.Background(), path, "fake")
	var dle *docs.DocumentLoadError
	require.ErrorAs(t, err, &dle)
	assert.Equal(t, "fake", dle.Name)
}

func TestPDFExtractor_MissingFile(t *testing.T) {
	_, err := docs.PDFExtractor{}.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestDocumentLoadError_Message(t *testing.T) {
	err := &docs.DocumentLoadError{Path: "/u/a.pdf", Name: "a", Err: docs.ErrNoText}
	assert.Contains(t, err.Error(), `"a"`)
	assert.ErrorIs(t, err, docs.ErrNoText)
}
