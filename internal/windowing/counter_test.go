package windowing_test

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/paper-agent/internal/tokens"
	"github.com/petasbytes/paper-agent/internal/windowing"
)

func TestMessageCounter_TextAndOverhead(t *testing.T) {
	overhead := runeCounter.CountMessage(User(T("")))
	got := runeCounter.CountMessage(User(T("hello"), T("é")))
	if want := 6 + 2*overhead; got != want {
		t.Fatalf("got=%d want=%d", got, want)
	}
}

func TestMessageCounter_ToolResultPayload(t *testing.T) {
	overhead := runeCounter.CountMessage(User(T("")))
	got := runeCounter.CountMessage(User(TRString("a", "abcdef")))
	if got != 6+overhead {
		t.Fatalf("got=%d want=%d", got, 6+overhead)
	}
}

func TestMessageCounter_ToolUseCountsNameAndInput(t *testing.T) {
	tu := anthropic.ToolUseBlockParam{ID: "a", Name: "vector_tool_x", Input: map[string]any{"query": "q"}}
	m := Asst(anthropic.ContentBlockParamUnion{OfToolUse: &tu})
	overhead := runeCounter.CountMessage(User(T("")))
	// name (13) + `{"query":"q"}` (13)
	if got := runeCounter.CountMessage(m); got != 26+overhead {
		t.Fatalf("got=%d", got)
	}
}

func TestMessageCounter_Tiktoken(t *testing.T) {
	tk, err := tokens.NewTiktoken()
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	c := windowing.MessageCounter{Text: tk}
	long := User(T("The transformer architecture relies entirely on attention."))
	if c.CountMessage(long) >= runeCounter.CountMessage(long) {
		t.Fatal("expected BPE estimate below rune estimate for English prose")
	}
}
