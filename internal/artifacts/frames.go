// Package artifacts stores binary session artifacts (captured frames and
// emulator save states) under one root directory.
package artifacts

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// FrameStore writes files under <root>/frames/<session>/ and
// <root>/states/<session>/. References handed out are slash-separated and
// relative to root.
type FrameStore struct {
	root    string
	session string
}

// NewFrameStore prepares a store for one session.
func NewFrameStore(root, session string) (*FrameStore, error) {
	if !validName(session) {
		return nil, fmt.Errorf("artifacts: invalid session id %q", session)
	}
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: mkdir %s: %w", abs, err)
	}
	return &FrameStore{root: abs, session: session}, nil
}

// Root is the absolute store root.
func (s *FrameStore) Root() string { return s.root }

// FrameRef is the reference SaveFrame returns for turn.
func (s *FrameStore) FrameRef(turn int) string {
	return path.Join("frames", s.session, fmt.Sprintf("turn-%06d.png", turn))
}

// SaveFrame writes a PNG for turn and returns its reference.
func (s *FrameStore) SaveFrame(turn int, png []byte) (string, error) {
	ref := s.FrameRef(turn)
	if err := s.write(ref, png); err != nil {
		return "", err
	}
	return ref, nil
}

// StatePath returns the absolute path of a named emulator save state,
// creating its directory.
func (s *FrameStore) StatePath(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: state %q", ErrOutsideRoot, name)
	}
	p, err := contained(s.root, path.Join("states", s.session, name+".state"))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("artifacts: mkdir: %w", err)
	}
	return p, nil
}

// Open resolves a reference to an absolute path inside the root.
func (s *FrameStore) Open(ref string) (string, error) {
	return contained(s.root, filepath.FromSlash(ref))
}

// write stores data atomically via a temp file and rename.
func (s *FrameStore) write(ref string, data []byte) error {
	p, err := contained(s.root, filepath.FromSlash(ref))
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifacts: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("artifacts: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("artifacts: write %s: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("artifacts: close %s: %w", ref, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("artifacts: rename %s: %w", ref, err)
	}
	return nil
}

// validName accepts a single path element.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}
