package docs

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/petasbytes/paper-agent/tools"
)

const (
	metaPage  = "page"
	metaChunk = "chunk"
)

// Index is the chunk store of one document. It implements tools.Searcher.
type Index struct {
	doc string
	col *chromem.Collection
}

var _ tools.Searcher = (*Index)(nil)

// NewIndex embeds chunks into a fresh in-memory collection.
func NewIndex(ctx context.Context, doc string, chunks []Chunk, embed chromem.EmbeddingFunc, concurrency int) (*Index, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	db := chromem.NewDB()
	col, err := db.CreateCollection(doc, map[string]string{"document": doc}, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      strconv.Itoa(c.Index),
			Content: c.Text,
			Metadata: map[string]string{
				metaPage:  strconv.Itoa(c.Page),
				metaChunk: strconv.Itoa(c.Index),
			},
		}
	}
	if err := col.AddDocuments(ctx, docs, concurrency); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	return &Index{doc: doc, col: col}, nil
}

// Count reports the number of indexed chunks.
func (ix *Index) Count() int { return ix.col.Count() }

// Search returns up to topK passages by similarity. With pages set, each page
// is queried separately and the results merged.
func (ix *Index) Search(ctx context.Context, query string, topK int, pages []string) ([]tools.Passage, error) {
	n := min(topK, ix.col.Count())
	if n <= 0 {
		return nil, nil
	}
	if len(pages) == 0 {
		res, err := ix.col.Query(ctx, query, n, nil, nil)
		if err != nil {
			return nil, err
		}
		return toPassages(res), nil
	}

	var merged []chromem.Result
	seen := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		res, err := ix.col.Query(ctx, query, n, map[string]string{metaPage: p}, nil)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", p, err)
		}
		merged = append(merged, res...)
	}
	slices.SortStableFunc(merged, func(a, b chromem.Result) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return 0
	})
	if len(merged) > n {
		merged = merged[:n]
	}
	return toPassages(merged), nil
}

func toPassages(res []chromem.Result) []tools.Passage {
	out := make([]tools.Passage, len(res))
	for i, r := range res {
		chunk, _ := strconv.Atoi(r.Metadata[metaChunk])
		out[i] = tools.Passage{
			Text:  r.Content,
			Page:  r.Metadata[metaPage],
			Chunk: chunk,
			Score: r.Similarity,
		}
	}
	return out
}
