package docs

import "fmt"

// DocumentLoadError reports a document that could not be turned into tools:
// unreadable, unparsable, textless or unindexable.
type DocumentLoadError struct {
	Path string
	Name string
	Err  error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("load document %q (%s): %v", e.Name, e.Path, e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }
