// Package tokens estimates token counts for chunking and context windowing.
package tokens

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Use the embedded BPE ranks; no network access at runtime.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Encoding is compatible enough with Claude tokenisation for budgeting.
const Encoding = "cl100k_base"

// Counter estimates the number of tokens in s.
type Counter interface {
	Count(s string) int
}

// Runes counts one token per rune. Deterministic; used in tests and as a fallback.
type Runes struct{}

func (Runes) Count(s string) int { return utf8.RuneCountInString(s) }

// Split cuts s into windows of at most size runes, each overlapping the
// previous one by overlap runes.
func (Runes) Split(s string, size, overlap int) []string {
	rs := []rune(s)
	return window(len(rs), size, overlap, func(i, j int) string { return string(rs[i:j]) })
}

// Tiktoken counts BPE tokens.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
	mu  sync.Mutex
}

var (
	shared     *Tiktoken
	sharedOnce sync.Once
	sharedErr  error
)

// NewTiktoken returns the process-wide tiktoken counter, loading the encoding once.
func NewTiktoken() (*Tiktoken, error) {
	sharedOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(Encoding)
		if err != nil {
			sharedErr = fmt.Errorf("load %s: %w", Encoding, err)
			return
		}
		shared = &Tiktoken{enc: enc}
	})
	return shared, sharedErr
}

func (t *Tiktoken) Count(s string) int {
	if s == "" {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.enc.Encode(s, nil, nil))
}

// Split cuts s into windows of at most size BPE tokens, each overlapping the
// previous one by overlap tokens. Bytes of a rune cut at a window edge are dropped.
func (t *Tiktoken) Split(s string, size, overlap int) []string {
	if s == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := t.enc.Encode(s, nil, nil)
	return window(len(ids), size, overlap, func(i, j int) string {
		return strings.ToValidUTF8(t.enc.Decode(ids[i:j]), "")
	})
}

// window slices [0,n) into overlapping spans and renders each span with cut.
func window(n, size, overlap int, cut func(i, j int) string) []string {
	if n == 0 || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	var out []string
	for start := 0; start < n; start += size - overlap {
		end := min(start+size, n)
		if piece := strings.TrimSpace(cut(start, end)); piece != "" {
			out = append(out, piece)
		}
		if end == n {
			break
		}
	}
	return out
}

// Default returns the tiktoken counter, or Runes when the encoding cannot load.
func Default() Counter {
	if t, err := NewTiktoken(); err == nil {
		return t
	}
	return Runes{}
}
