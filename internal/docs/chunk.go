package docs

// Defaults for the token chunker.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 64
)

// Splitter cuts text into windows of at most size tokens that overlap by
// overlap tokens. tokens.Tiktoken and tokens.Runes implement it.
type Splitter interface {
	Split(text string, size, overlap int) []string
}

// Chunk is one indexed slice of a page. Index is unique within the document.
type Chunk struct {
	Text  string
	Page  int
	Index int
}

// ChunkPages splits every page independently so a chunk never spans pages.
func ChunkPages(pages []Page, s Splitter, size, overlap int) []Chunk {
	var out []Chunk
	for _, p := range pages {
		for _, text := range s.Split(p.Text, size, overlap) {
			out = append(out, Chunk{Text: text, Page: p.Number, Index: len(out)})
		}
	}
	return out
}

func chunkTexts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
