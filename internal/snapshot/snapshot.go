// Package snapshot writes the flattened committed document to a fixed
// path on shutdown and on each session disconnect: plain os.WriteFile
// under directory-creation. The document's read lock only covers the
// Flatten call; a private mutex on
// Writer serializes the file write itself, since two goroutines calling
// Write on it concurrently (a disconnect racing shutdown) would otherwise
// interleave os.WriteFile calls even though neither holds the document's
// exclusive lock.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/collabmd/server/internal/document"
)

// Writer persists doc's flattened text to path. Its own mutex serializes
// concurrent callers (shutdown racing a session disconnect); the
// document's read lock only protects the Flatten call itself.
type Writer struct {
	mu   sync.Mutex
	path string
	doc  *document.Document
}

// New returns a Writer for doc, creating path's parent directory lazily
// on the first Write.
func New(doc *document.Document, path string) *Writer {
	return &Writer{path: path, doc: doc}
}

// Write flattens the committed document under a read lock and writes it
// to the snapshot path, replacing any previous contents.
func (w *Writer) Write() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ensureDir(w.path); err != nil {
		return fmt.Errorf("snapshot: prepare dir: %w", err)
	}

	w.doc.RLock()
	content := w.doc.Flatten()
	w.doc.RUnlock()

	if err := os.WriteFile(w.path, content, 0o644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", w.path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
