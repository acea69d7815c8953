package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/collabmd/server/internal/document"
	"github.com/stretchr/testify/require"
)

func TestWriter_WritesFlattenedDocument(t *testing.T) {
	doc := document.New()
	require.NoError(t, doc.InsertText(0, []byte("hello")))
	doc.Commit()

	path := filepath.Join(t.TempDir(), "nested", "snapshot.md")
	w := New(doc, path)
	require.NoError(t, w.Write())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}
