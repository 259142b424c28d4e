package tools_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/petasbytes/paper-agent/tools"
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func TestToolName_PlainNameUnchanged(t *testing.T) {
	if got := tools.ToolName("vector_tool_", "metagpt"); got != "vector_tool_metagpt" {
		t.Fatalf("got %q", got)
	}
}

func TestToolName_SanitisedAndDistinct(t *testing.T) {
	a := tools.ToolName("vector_tool_", "Paper A")
	b := tools.ToolName("vector_tool_", "Paper_A")
	if !validName.MatchString(a) || !validName.MatchString(b) {
		t.Fatalf("invalid tool names: %q %q", a, b)
	}
	if a == b {
		t.Fatalf("expected distinct names for distinct documents, both %q", a)
	}
	if !strings.HasPrefix(a, "vector_tool_Paper_A_") {
		t.Fatalf("unexpected sanitised name %q", a)
	}
}

func TestToolName_LongAndEmpty(t *testing.T) {
	long := tools.ToolName("summary_tool_", strings.Repeat("very-long-document-name", 10))
	if !validName.MatchString(long) {
		t.Fatalf("long name not valid: %q (%d)", long, len(long))
	}
	empty := tools.ToolName("summary_tool_", "???")
	if !validName.MatchString(empty) || !strings.HasPrefix(empty, "summary_tool_document") {
		t.Fatalf("unexpected name for unusable document name: %q", empty)
	}
}

func TestKind_String(t *testing.T) {
	if tools.KindVector.String() != "vector" || tools.KindSummary.String() != "summary" {
		t.Fatal("unexpected kind strings")
	}
}

func TestInputSchemas_HaveQuery(t *testing.T) {
	for name, schema := range map[string]any{
		"vector":  tools.VectorInputSchema.Properties,
		"summary": tools.SummaryInputSchema.Properties,
	} {
		if schema == nil {
			t.Fatalf("%s: nil properties", name)
		}
	}
	p := newPair("doc")
	if p.Vector.InputSchema().Properties == nil || p.Summary.InputSchema().Properties == nil {
		t.Fatal("tool schemas missing properties")
	}
}
