package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/patrickmn/go-cache"

	"github.com/petasbytes/paper-agent/internal/safety"
)

type SummaryInput struct {
	Query string `json:"query" jsonschema_description:"What the summary should focus on, e.g. 'overall summary' or a specific theme."`
}

var SummaryInputSchema = GenerateSchema[SummaryInput]()

const (
	// defaultBatchRunes caps the text packed into one summarisation prompt.
	defaultBatchRunes = 12_000
	// DefaultSummaryTTL is how long a summary for the same query is reused.
	DefaultSummaryTTL = 30 * time.Minute
)

// SummaryTool synthesises a whole-document answer by summarising every chunk
// in batches and then combining the partial summaries (tree summarisation).
type SummaryTool struct {
	doc        string
	name       string
	chunks     []string
	gen        Generator
	batchRunes int
	cache      *cache.Cache
}

// NewSummaryTool keeps its own copy of chunks. A ttl <= 0 uses DefaultSummaryTTL.
func NewSummaryTool(doc string, chunks []string, gen Generator, ttl time.Duration) *SummaryTool {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &SummaryTool{
		doc:        doc,
		name:       ToolName("summary_tool_", doc),
		chunks:     append([]string(nil), chunks...),
		gen:        gen,
		batchRunes: defaultBatchRunes,
		cache:      cache.New(ttl, 2*ttl),
	}
}

func (t *SummaryTool) Name() string     { return t.name }
func (t *SummaryTool) Kind() Kind       { return KindSummary }
func (t *SummaryTool) Document() string { return t.doc }
func (t *SummaryTool) sealed()          {}

func (t *SummaryTool) Description() string {
	return fmt.Sprintf("Use for summarization questions about the document %q: overall contributions, "+
		"structure, conclusions or themes. Do NOT use for specific factual lookups in %q.", t.doc, t.doc)
}

func (t *SummaryTool) InputSchema() anthropic.ToolInputSchemaParam { return SummaryInputSchema }

func (t *SummaryTool) Invoke(ctx context.Context, input json.RawMessage) (string, error) {
	var in SummaryInput
	if err := decodeInput(input, &in); err != nil {
		return "", err
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		query = "Give an overall summary of the document."
	}

	key := strings.ToLower(query)
	if v, ok := t.cache.Get(key); ok {
		return v.(string), nil
	}

	if len(t.chunks) == 0 {
		return "", safety.ToolError{Code: safety.CodeToolFailed, Message: fmt.Sprintf("document %q has no content", t.doc)}
	}

	summary, err := t.treeSummarize(ctx, query, t.chunks)
	if err != nil {
		return "", safety.ToolError{Code: safety.CodeToolFailed, Message: fmt.Sprintf("summarize %s: %v", t.doc, err)}
	}
	summary = strings.TrimSpace(summary)
	t.cache.SetDefault(key, summary)
	return summary, nil
}

// treeSummarize reduces texts level by level until a single summary remains.
func (t *SummaryTool) treeSummarize(ctx context.Context, query string, texts []string) (string, error) {
	for {
		batches := packBatches(texts, t.batchRunes)
		next := make([]string, 0, len(batches))
		for _, batch := range batches {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			out, err := t.gen.Generate(ctx, summaryPrompt(t.doc, query, batch))
			if err != nil {
				return "", err
			}
			next = append(next, out)
		}
		if len(next) == 1 {
			return next[0], nil
		}
		texts = next
	}
}

// packBatches groups texts so each batch stays under limit runes where
// possible. Every batch holds at least one text, and when more than one text
// is given the result always has fewer batches than texts so reduction terminates.
func packBatches(texts []string, limit int) [][]string {
	var (
		batches [][]string
		cur     []string
		size    int
	)
	for _, s := range texts {
		n := utf8.RuneCountInString(s)
		if len(cur) > 0 && size+n > limit {
			batches = append(batches, cur)
			cur, size = nil, 0
		}
		cur = append(cur, s)
		size += n
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}

	if len(texts) > 1 && len(batches) == len(texts) {
		paired := make([][]string, 0, (len(texts)+1)/2)
		for i := 0; i < len(texts); i += 2 {
			end := min(i+2, len(texts))
			paired = append(paired, texts[i:end])
		}
		return paired
	}
	return batches
}

func summaryPrompt(doc, query string, batch []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context information from the document %q is below.\n", doc)
	b.WriteString("---------------------\n")
	for _, s := range batch {
		b.WriteString(strings.TrimSpace(s))
		b.WriteString("\n\n")
	}
	b.WriteString("---------------------\n")
	b.WriteString("Given the information from this document only and not prior knowledge, ")
	fmt.Fprintf(&b, "write a summary that addresses the request.\nRequest: %s\nSummary: ", query)
	return b.String()
}
