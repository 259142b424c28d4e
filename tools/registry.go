package tools

import "sort"

// Pair is the two tools built for one document.
type Pair struct {
	Vector  *VectorTool
	Summary *SummaryTool
}

// Tools returns the pair as a slice, vector tool first.
func (p Pair) Tools() []Tool {
	return []Tool{p.Vector, p.Summary}
}

// Registry maps document names to their tool pairs. It only grows.
// Not safe for concurrent use.
type Registry struct {
	pairs map[string]Pair
}

func NewRegistry() *Registry {
	return &Registry{pairs: make(map[string]Pair)}
}

// Register inserts or overwrites the pair for doc.
func (r *Registry) Register(doc string, p Pair) {
	r.pairs[doc] = p
}

// Lookup returns the pair registered for doc.
func (r *Registry) Lookup(doc string) (Pair, bool) {
	p, ok := r.pairs[doc]
	return p, ok
}

// Len reports the number of registered documents.
func (r *Registry) Len() int { return len(r.pairs) }

// Documents returns registered document names in sorted order.
func (r *Registry) Documents() []string {
	names := make([]string, 0, len(r.pairs))
	for name := range r.pairs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllTools flattens every registered pair. Order carries no meaning for
// retrieval but is kept deterministic (by document name).
func (r *Registry) AllTools() []Tool {
	out := make([]Tool, 0, 2*len(r.pairs))
	for _, name := range r.Documents() {
		out = append(out, r.pairs[name].Tools()...)
	}
	return out
}
