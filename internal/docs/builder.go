package docs

import (
	"context"
	"errors"
	"time"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/petasbytes/paper-agent/tools"
)

// Builder produces the tool pair for one document. It holds no per-document
// state, so one Builder may serve concurrent Build calls.
type Builder struct {
	Extractor    Extractor
	Splitter     Splitter
	ChunkSize    int
	ChunkOverlap int
	Embed        chromem.EmbeddingFunc
	Generator    tools.Generator
	SummaryTTL   time.Duration
	// EmbedConcurrency bounds parallel embedding calls per document.
	EmbedConcurrency int
	Log              *zap.Logger
}

// Build extracts, chunks and indexes the document at path and returns its
// vector and summary tools. Every failure is a *DocumentLoadError.
func (b *Builder) Build(ctx context.Context, path, name string) (tools.Pair, error) {
	fail := func(err error) (tools.Pair, error) {
		return tools.Pair{}, &DocumentLoadError{Path: path, Name: name, Err: err}
	}
	if b.Embed == nil || b.Generator == nil || b.Splitter == nil {
		return fail(errors.New("builder is missing an embedder, generator or splitter"))
	}
	log := b.logger().With(zap.String("document", name))

	ext := b.Extractor
	if ext == nil {
		ext = PDFExtractor{}
	}
	start := time.Now()
	pages, err := ext.Extract(ctx, path)
	if err != nil {
		return fail(err)
	}

	size, overlap := b.ChunkSize, b.ChunkOverlap
	if size <= 0 {
		size, overlap = DefaultChunkSize, DefaultChunkOverlap
	}
	chunks := ChunkPages(pages, b.Splitter, size, overlap)
	if len(chunks) == 0 {
		return fail(ErrNoText)
	}

	index, err := NewIndex(ctx, name, chunks, b.Embed, b.EmbedConcurrency)
	if err != nil {
		return fail(err)
	}

	ttl := b.SummaryTTL
	if ttl <= 0 {
		ttl = tools.DefaultSummaryTTL
	}
	pair := tools.Pair{
		Vector:  tools.NewVectorTool(name, index, b.Generator),
		Summary: tools.NewSummaryTool(name, chunkTexts(chunks), b.Generator, ttl),
	}
	log.Debug("document indexed",
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return pair, nil
}

func (b *Builder) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log.Named("docs")
}
