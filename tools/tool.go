package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// Kind distinguishes the two tool variants.
type Kind int

const (
	KindVector Kind = iota
	KindSummary
)

func (k Kind) String() string {
	switch k {
	case KindVector:
		return "vector"
	case KindSummary:
		return "summary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Tool is a described, callable capability over one document. The set of
// implementations is closed: *VectorTool and *SummaryTool.
type Tool interface {
	Name() string
	Description() string
	Kind() Kind
	// Document is the name of the document that owns the tool.
	Document() string
	InputSchema() anthropic.ToolInputSchemaParam
	Invoke(ctx context.Context, input json.RawMessage) (string, error)

	sealed()
}

// Passage is one retrieved chunk of a document.
type Passage struct {
	Text  string
	Page  string
	Chunk int
	Score float32
}

// Searcher runs semantic lookups over one document's chunks. When pages is
// non-empty only chunks from those pages are considered.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, pages []string) ([]Passage, error)
}

// Generator is the text-generation boundary: one prompt in, one text out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerateSchema derives the Messages API input schema for T.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{Properties: schema.Properties}
}

const maxToolNameLen = 64

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ToolName builds a tool name from prefix and document name. Characters the
// API rejects are replaced; when that changes the document name a short hash
// suffix keeps distinct documents from colliding.
func ToolName(prefix, doc string) string {
	clean := strings.Trim(invalidNameChars.ReplaceAllString(doc, "_"), "_")
	if clean == "" {
		clean = "document"
	}
	suffix := ""
	if clean != doc || len(prefix)+len(clean) > maxToolNameLen {
		h := fnv.New32a()
		h.Write([]byte(doc))
		suffix = fmt.Sprintf("_%08x", h.Sum32())
	}
	if room := maxToolNameLen - len(prefix) - len(suffix); len(clean) > room {
		clean = clean[:room]
	}
	return prefix + clean + suffix
}

func decodeInput(input json.RawMessage, v any) error {
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if err := json.Unmarshal(input, v); err != nil {
		return invalidInput("malformed input: %v", err)
	}
	return nil
}
