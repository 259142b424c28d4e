// Package safety keeps uploaded documents inside a sandboxed directory and
// defines the machine-readable error body returned to the agent by tools.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Error codes surfaced in ToolError.Code.
const (
	CodeOutsideSandbox  = "ERR_PATH_OUTSIDE_SANDBOX"
	CodeDeniedWrite     = "ERR_DENIED_WRITE"
	CodeUnsupportedType = "ERR_UNSUPPORTED_TYPE"
	CodeInvalidName     = "ERR_INVALID_NAME"
	CodeInvalidInput    = "ERR_INVALID_INPUT"
	CodeToolFailed      = "ERR_TOOL_FAILED"
	CodeToolNotFound    = "ERR_TOOL_NOT_FOUND"
)

// ToolError is a machine-readable error body for surfacing back to the agent as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool_result payloads small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// InitSandboxRoot resolves the absolute upload root, creating it when missing.
// An empty root defaults to "uploads" under the working directory.
func InitSandboxRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = filepath.Join(cwd, "uploads")
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(root): %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", root, err)
	}

	// Resolve symlinks so later boundary checks compare like with like.
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	return root, nil
}

// ValidateUploadName maps an uploaded file name to an absolute path directly
// under absRoot. Names must be plain PDF file names: no directories, no
// traversal, no hidden files. On violation it returns a ToolError.
func ValidateUploadName(absRoot, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ToolError{Code: CodeInvalidName, Message: "file name is empty"}
	}
	if filepath.IsAbs(name) {
		return "", ToolError{Code: CodeOutsideSandbox, Message: "absolute paths are not allowed"}
	}

	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == "." || cleaned == ".." || cleaned != filepath.Base(cleaned) {
		return "", ToolError{Code: CodeOutsideSandbox, Message: "file name must not contain directories"}
	}
	if strings.HasPrefix(cleaned, ".") {
		return "", ToolError{Code: CodeDeniedWrite, Message: "hidden file names are not allowed"}
	}
	if !strings.EqualFold(filepath.Ext(cleaned), ".pdf") {
		return "", ToolError{Code: CodeUnsupportedType, Message: "only .pdf uploads are supported"}
	}

	candidate := filepath.Join(absRoot, cleaned)

	// An existing entry may be a symlink planted to redirect the write.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		rel, err := filepath.Rel(absRoot, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
			return "", ToolError{Code: CodeOutsideSandbox, Message: "upload target resolves outside the sandbox root"}
		}
		if fi, err := os.Stat(resolved); err == nil && fi.IsDir() {
			return "", ToolError{Code: CodeDeniedWrite, Message: "upload target is a directory"}
		}
		candidate = resolved
	}

	return candidate, nil
}
