// Package uploads persists uploaded document bytes under a sandboxed root so
// downstream builders can consume a stable file path.
package uploads

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petasbytes/paper-agent/internal/safety"
)

// File is one uploaded document as handed over by an interactive surface.
type File struct {
	Name string
	Data []byte
}

// Store writes uploads beneath a single root directory.
type Store struct {
	root string
}

// NewStore resolves (and creates) root. An empty root means ./uploads.
func NewStore(root string) (*Store, error) {
	abs, err := safety.InitSandboxRoot(root)
	if err != nil {
		return nil, err
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute upload directory.
func (s *Store) Root() string { return s.root }

// Save writes f under the root, replacing any previous upload with the same
// name, and returns the absolute path written.
func (s *Store) Save(f File) (string, error) {
	absPath, err := safety.ValidateUploadName(s.root, f.Name)
	if err != nil {
		return "", err // propagate ToolError unchanged
	}
	if len(f.Data) == 0 {
		return "", safety.ToolError{Code: safety.CodeInvalidInput, Message: "uploaded file is empty"}
	}

	// Write to a temp file first so a half-written upload never replaces a good one.
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", f.Name, err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename %s: %w", f.Name, err)
	}
	return absPath, nil
}

// Stem returns the file name without directory and extension; it is the
// document name used in tool names and descriptions.
func Stem(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
