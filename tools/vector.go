package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/paper-agent/internal/safety"
)

type VectorInput struct {
	Query       string   `json:"query" jsonschema_description:"The question to look up in the document."`
	PageNumbers []string `json:"page_numbers,omitempty" jsonschema_description:"Optional page numbers to restrict the search to. Leave empty to search the whole document."`
}

var VectorInputSchema = GenerateSchema[VectorInput]()

// DefaultVectorTopK is how many passages a vector lookup synthesises from.
const DefaultVectorTopK = 2

// VectorTool answers specific questions from the passages most similar to the query.
type VectorTool struct {
	doc   string
	name  string
	index Searcher
	gen   Generator
	topK  int
}

func NewVectorTool(doc string, index Searcher, gen Generator) *VectorTool {
	return &VectorTool{
		doc:   doc,
		name:  ToolName("vector_tool_", doc),
		index: index,
		gen:   gen,
		topK:  DefaultVectorTopK,
	}
}

func (t *VectorTool) Name() string     { return t.name }
func (t *VectorTool) Kind() Kind       { return KindVector }
func (t *VectorTool) Document() string { return t.doc }
func (t *VectorTool) sealed()          {}

func (t *VectorTool) Description() string {
	return fmt.Sprintf("Use to look up specific facts, figures, methods or passages in the document %q. "+
		"Optionally restrict the search with page_numbers. Do NOT use for holistic summaries of %q.", t.doc, t.doc)
}

func (t *VectorTool) InputSchema() anthropic.ToolInputSchemaParam { return VectorInputSchema }

// Invoke retrieves the top passages and asks the generator to answer from them
// alone. The answer carries a Sources footer listing the pages used.
func (t *VectorTool) Invoke(ctx context.Context, input json.RawMessage) (string, error) {
	var in VectorInput
	if err := decodeInput(input, &in); err != nil {
		return "", err
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return "", invalidInput("query must not be empty")
	}

	passages, err := t.index.Search(ctx, query, t.topK, in.PageNumbers)
	if err != nil {
		return "", safety.ToolError{Code: safety.CodeToolFailed, Message: fmt.Sprintf("search %s: %v", t.doc, err)}
	}
	if len(passages) == 0 {
		return fmt.Sprintf("No matching passages found in %q.", t.doc), nil
	}

	answer, err := t.gen.Generate(ctx, answerPrompt(t.doc, query, passages))
	if err != nil {
		return "", safety.ToolError{Code: safety.CodeToolFailed, Message: fmt.Sprintf("generate answer: %v", err)}
	}
	return strings.TrimSpace(answer) + "\n\nSources: " + sourceList(passages), nil
}

func answerPrompt(doc, query string, passages []Passage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context information from the document %q is below.\n", doc)
	b.WriteString("---------------------\n")
	for _, p := range passages {
		fmt.Fprintf(&b, "[page %s]\n%s\n\n", p.Page, strings.TrimSpace(p.Text))
	}
	b.WriteString("---------------------\n")
	b.WriteString("Given the context information and not prior knowledge, answer the query. ")
	b.WriteString("If the context does not contain the answer, say so.\n")
	fmt.Fprintf(&b, "Query: %s\nAnswer: ", query)
	return b.String()
}

func sourceList(passages []Passage) string {
	seen := make(map[string]struct{}, len(passages))
	pages := make([]string, 0, len(passages))
	for _, p := range passages {
		if _, ok := seen[p.Page]; ok {
			continue
		}
		seen[p.Page] = struct{}{}
		pages = append(pages, "p."+p.Page)
	}
	return strings.Join(pages, ", ")
}

func invalidInput(format string, args ...any) error {
	return safety.ToolError{Code: safety.CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}
