// Package embedtest provides a deterministic embedding function for tests
// that exercise chromem collections without a model server.
package embedtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/philippgille/chromem-go"
)

// Dim is the vector length produced by BagOfWords.
const Dim = 128

// BagOfWords hashes lower-cased words into Dim-1 buckets plus one constant
// bias component, so no vector is ever zero. Vectors are unit length.
func BagOfWords() chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		v := make([]float32, Dim)
		v[Dim-1] = 0.5
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			v[h.Sum32()%(Dim-1)]++
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		n := float32(math.Sqrt(norm))
		for i := range v {
			v[i] /= n
		}
		return v, nil
	}
}
