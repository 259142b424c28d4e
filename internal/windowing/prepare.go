package windowing

import "github.com/anthropics/anthropic-sdk-go"

// Stats summarizes the result of window preparation.
type Stats struct {
	Total          int // estimated tokens for included groups
	Budget         int
	IncludedGroups int
	SkippedGroups  int
	// OverBudgetNewest is set when nothing sendable fits: the newest group
	// alone exceeds Budget, or no suffix that starts with a user message fits.
	OverBudgetNewest bool
}

// PrepareSendWindow returns the longest suffix of msgs made of whole groups
// whose estimated cost fits budget. The window always starts with a user
// message; leading assistant groups are dropped.
func PrepareSendWindow(msgs []anthropic.MessageParam, budget int, c MessageCounter) ([]anthropic.MessageParam, Stats) {
	stats := Stats{Budget: budget}
	if len(msgs) == 0 {
		return nil, stats
	}

	groups := GroupBlocks(msgs)
	if budget <= 0 {
		stats.SkippedGroups = len(groups)
		stats.OverBudgetNewest = true
		return nil, stats
	}

	costs := make([]int, len(groups))
	start := len(groups)
	total := 0
	for gi := len(groups) - 1; gi >= 0; gi-- {
		costs[gi] = c.CountGroup(groups[gi], msgs)
		if total+costs[gi] > budget {
			break
		}
		total += costs[gi]
		start = gi
	}

	// The API expects the first message to come from the user.
	for start < len(groups) && msgs[groups[start].Start].Role != anthropic.MessageParamRoleUser {
		total -= costs[start]
		start++
	}

	stats.IncludedGroups = len(groups) - start
	stats.SkippedGroups = start
	if stats.IncludedGroups == 0 {
		stats.OverBudgetNewest = true
		return nil, stats
	}
	stats.Total = total
	return msgs[groups[start].Start:], stats
}
