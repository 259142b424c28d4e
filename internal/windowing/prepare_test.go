package windowing_test

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/paper-agent/internal/windowing"
)

func TestPrepareSendWindow_KeepsPairsWhole(t *testing.T) {
	msgs := []anthropic.MessageParam{
		User(T("old")),             // 3 + 4 = 7
		User(T("query")),           // 5 + 4 = 9
		Asst(TU("a")),              // 0 + 4
		User(TRString("a", "res")), // 3 + 4 => pair = 11
	}
	window, stats := windowing.PrepareSendWindow(msgs, 20, runeCounter)

	if len(window) != 3 || stats.IncludedGroups != 2 || stats.SkippedGroups != 1 || stats.Total != 20 {
		t.Fatalf("unexpected window=%d stats=%+v", len(window), stats)
	}
	if window[0].Role != anthropic.MessageParamRoleUser || window[1].Role != anthropic.MessageParamRoleAssistant {
		t.Fatalf("unexpected roles: %v %v", window[0].Role, window[1].Role)
	}
}

func TestPrepareSendWindow_DropsLeadingAssistant(t *testing.T) {
	msgs := []anthropic.MessageParam{
		User(T("query-that-is-long")),
		Asst(TU("a")),
		User(TRString("a", "r")),
	}
	// Budget fits the pair (9) but not the query (22); a pair-only window
	// would start with the assistant and is not sendable.
	window, stats := windowing.PrepareSendWindow(msgs, 10, runeCounter)
	if len(window) != 0 || !stats.OverBudgetNewest {
		t.Fatalf("expected empty window, got %d stats=%+v", len(window), stats)
	}
}

func TestPrepareSendWindow_NewestOverBudget(t *testing.T) {
	msgs := []anthropic.MessageParam{User(T("old")), User(T("xxxxxxxxxxxxxxxx"))}
	window, stats := windowing.PrepareSendWindow(msgs, 10, runeCounter)
	if len(window) != 0 || !stats.OverBudgetNewest || stats.SkippedGroups != 2 {
		t.Fatalf("unexpected window=%d stats=%+v", len(window), stats)
	}
}

func TestPrepareSendWindow_NoCapacityBudget(t *testing.T) {
	window, stats := windowing.PrepareSendWindow([]anthropic.MessageParam{User(T("x"))}, 0, runeCounter)
	if len(window) != 0 || !stats.OverBudgetNewest || stats.SkippedGroups != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPrepareSendWindow_Empty(t *testing.T) {
	window, stats := windowing.PrepareSendWindow(nil, 10, runeCounter)
	if window != nil || stats.OverBudgetNewest {
		t.Fatalf("unexpected result for empty input: %v %+v", window, stats)
	}
}

func TestPrepareSendWindow_AllFits(t *testing.T) {
	msgs := []anthropic.MessageParam{User(T("a")), Asst(T("b")), User(T("c"))}
	window, stats := windowing.PrepareSendWindow(msgs, 1000, runeCounter)
	if len(window) != 3 || stats.SkippedGroups != 0 || stats.Total != 15 {
		t.Fatalf("unexpected window=%d stats=%+v", len(window), stats)
	}
}
