package docs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the plain text of one page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor reads the pages of a document.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Page, error)
}

var ErrNoText = errors.New("document has no extractable text")

// PDFExtractor extracts page text with ledongthuc/pdf. Pages without text are omitted.
type PDFExtractor struct{}

func (PDFExtractor) Extract(ctx context.Context, path string) (pages []Page, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	defer f.Close()

	// The reader panics on some malformed content streams.
	defer func() {
		if p := recover(); p != nil {
			pages, err = nil, fmt.Errorf("parse pdf: %v", p)
		}
	}()

	for n := 1; n <= r.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: n, Text: text})
	}
	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return pages, nil
}
