package windowing

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/paper-agent/internal/tokens"
)

// blockOverhead approximates per-block formatting cost.
const blockOverhead = 4

// MessageCounter estimates input tokens for messages using a text counter.
type MessageCounter struct {
	Text tokens.Counter
}

// CountMessage sums the estimated cost of every block in m.
func (c MessageCounter) CountMessage(m anthropic.MessageParam) int {
	total := 0
	for _, blk := range m.Content {
		total += c.countBlock(blk) + blockOverhead
	}
	return total
}

// CountGroup sums CountMessage over the messages spanned by g.
func (c MessageCounter) CountGroup(g Group, all []anthropic.MessageParam) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += c.CountMessage(all[i])
	}
	return total
}

func (c MessageCounter) countBlock(blk anthropic.ContentBlockParamUnion) int {
	switch {
	case blk.OfText != nil:
		return c.Text.Count(blk.OfText.Text)
	case blk.OfToolResult != nil:
		n := 0
		for _, part := range blk.OfToolResult.Content {
			if part.OfText != nil {
				n += c.Text.Count(part.OfText.Text)
			}
		}
		return n
	case blk.OfToolUse != nil:
		n := c.Text.Count(blk.OfToolUse.Name)
		if blk.OfToolUse.Input != nil {
			if b, err := json.Marshal(blk.OfToolUse.Input); err == nil {
				n += c.Text.Count(string(b))
			}
		}
		return n
	default:
		// images, documents and thinking blocks are not produced by this agent
		return 0
	}
}
