// Package toolindex selects the tools most relevant to a query by embedding
// each tool's description and ranking them by cosine similarity.
package toolindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/petasbytes/paper-agent/tools"
)

// DefaultTopK is the number of candidate tools offered to the model per query.
const DefaultTopK = 3

var ErrEmptyToolSet = errors.New("toolindex: no tools to retrieve from")

const collectionName = "tools"

// Retriever is an immutable snapshot of a tool set. Rebuild it when the set changes.
type Retriever struct {
	col    *chromem.Collection
	byName map[string]tools.Tool
}

// Build indexes ts in a fresh in-memory database.
func Build(ctx context.Context, ts []tools.Tool, embed chromem.EmbeddingFunc) (*Retriever, error) {
	if len(ts) == 0 {
		return nil, ErrEmptyToolSet
	}
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("toolindex: create collection: %w", err)
	}

	byName := make(map[string]tools.Tool, len(ts))
	docs := make([]chromem.Document, 0, len(ts))
	for _, t := range ts {
		if _, dup := byName[t.Name()]; dup {
			continue
		}
		byName[t.Name()] = t
		docs = append(docs, chromem.Document{
			ID:      t.Name(),
			Content: t.Description(),
			Metadata: map[string]string{
				"kind":     t.Kind().String(),
				"document": t.Document(),
			},
		})
	}
	if err := col.AddDocuments(ctx, docs, 4); err != nil {
		return nil, fmt.Errorf("toolindex: embed tools: %w", err)
	}
	return &Retriever{col: col, byName: byName}, nil
}

// Len reports the number of indexed tools.
func (r *Retriever) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byName)
}

// Retrieve returns at most min(topK, Len()) tools ordered by similarity to query.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]tools.Tool, error) {
	if r.Len() == 0 {
		return nil, ErrEmptyToolSet
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	n := min(topK, r.col.Count())
	res, err := r.col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("toolindex: query: %w", err)
	}
	out := make([]tools.Tool, 0, len(res))
	for _, hit := range res {
		if t, ok := r.byName[hit.ID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
