// Package windowing selects the part of a conversation that fits the model's
// input budget without separating a tool_use from its tool_result.
package windowing

import "github.com/anthropics/anthropic-sdk-go"

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group is a contiguous span of messages [Start, End).
type Group struct {
	Kind  GroupKind
	Start int
	End   int
}

// GroupBlocks splits msgs into atomic units. A pair is an assistant message
// carrying tool_use blocks immediately followed by a user message whose
// leading tool_result blocks answer exactly those tool_use ids. Anything else
// is a singleton.
func GroupBlocks(msgs []anthropic.MessageParam) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if i+1 < len(msgs) && isToolPair(msgs[i], msgs[i+1]) {
			groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
			i += 2
			continue
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

func isToolPair(asst, user anthropic.MessageParam) bool {
	if asst.Role != anthropic.MessageParamRoleAssistant || user.Role != anthropic.MessageParamRoleUser {
		return false
	}
	uses := toolUseIDs(asst)
	if len(uses) == 0 {
		return false
	}
	results, ok := leadingResultIDs(user)
	if !ok || len(results) != len(uses) {
		return false
	}
	for id := range uses {
		if _, ok := results[id]; !ok {
			return false
		}
	}
	return true
}

func toolUseIDs(m anthropic.MessageParam) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, blk := range m.Content {
		if tu := blk.OfToolUse; tu != nil && tu.ID != "" {
			ids[tu.ID] = struct{}{}
		}
	}
	return ids
}

// leadingResultIDs collects tool_result ids from the leading segment of m.
// It reports false when a tool_result appears after any other block.
func leadingResultIDs(m anthropic.MessageParam) (map[string]struct{}, bool) {
	ids := make(map[string]struct{})
	pastResults := false
	for _, blk := range m.Content {
		tr := blk.OfToolResult
		if tr == nil {
			pastResults = true
			continue
		}
		if pastResults {
			return ids, false
		}
		if tr.ToolUseID != "" {
			ids[tr.ToolUseID] = struct{}{}
		}
	}
	return ids, true
}
