package artifacts

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for references that resolve outside the store.
var ErrOutsideRoot = errors.New("path resolves outside the artifact root")

// resolveRoot makes root absolute and resolves symlinks where possible so
// later boundary checks are reliable.
func resolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(%s): %w", root, err)
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// contained resolves rel against absRoot and rejects absolute inputs, parent
// traversal and escapes through a symlinked parent.
func contained(absRoot, rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	candidate := filepath.Join(absRoot, filepath.Clean(rel))

	// Resolve the whole candidate if it exists, else its parent.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(parent, filepath.Base(candidate))
	}

	r, err := filepath.Rel(absRoot, candidate)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) || filepath.IsAbs(r) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	return candidate, nil
}
