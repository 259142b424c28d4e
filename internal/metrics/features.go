// Package metrics exposes Prometheus collectors for the agent and local text
// features of user queries.
package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/paper-agent/internal/tokens"
)

// Features holds basic local text features derived from a query.
type Features struct {
	Bytes  int `json:"bytes"`
	Runes  int `json:"runes"`
	Words  int `json:"words"`
	Lines  int `json:"lines"`
	Tokens int `json:"tokens"`
}

// CountFeatures computes text features of s. Tokens is 0 when c is nil.
func CountFeatures(s string, c tokens.Counter) Features {
	f := Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
		Lines: countLines(s),
	}
	if c != nil {
		f.Tokens = c.Count(s)
	}
	return f
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}
