package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatten_EmptyDocument(t *testing.T) {
	doc := New()
	require.Equal(t, "", string(doc.Flatten()))
	require.Equal(t, uint64(0), doc.Version())
}

func TestInsertText_PutTextOrdering(t *testing.T) {
	// S1: two INSERT commands at pos 0 of an empty document in one batch;
	// both apply at the same baseline coordinate and the later one lands
	// ahead of the earlier one.
	doc := New()
	require.NoError(t, doc.InsertText(0, []byte("World")))
	require.NoError(t, doc.InsertText(0, []byte("Hello ")))
	doc.Commit()

	require.Equal(t, "Hello World", string(doc.Flatten()))
	require.Equal(t, uint64(1), doc.Version())
}

func TestDeleteRange_Basic(t *testing.T) {
	// S2: baseline "Hello World" v=1, DEL 5 6 -> "Hello"
	doc := New()
	require.NoError(t, doc.InsertText(0, []byte("Hello World")))
	doc.Commit()

	require.NoError(t, doc.DeleteRange(5, 6))
	doc.Commit()

	require.Equal(t, "Hello", string(doc.Flatten()))
	require.Equal(t, uint64(2), doc.Version())
}

func TestDeleteRange_OverrunDeletesToEnd(t *testing.T) {
	doc := New()
	require.NoError(t, doc.InsertText(0, []byte("Hello")))
	doc.Commit()

	require.NoError(t, doc.DeleteRange(2, 100))
	doc.Commit()

	require.Equal(t, "He", string(doc.Flatten()))
}

func TestInsertText_InvalidPosition(t *testing.T) {
	doc := New()
	require.NoError(t, doc.InsertText(0, []byte("Hi")))
	doc.Commit()

	err := doc.InsertText(99, []byte("x"))
	require.ErrorIs(t, err, ErrInvalidPosition)
}

func TestSplitMidSegment(t *testing.T) {
	doc := New()
	require.NoError(t, doc.InsertText(0, []byte("Hello World")))
	doc.Commit()

	require.NoError(t, doc.InsertText(5, []byte(",")))
	doc.Commit()

	require.Equal(t, "Hello, World", string(doc.Flatten()))
}

func TestCommit_MonotoneVersion(t *testing.T) {
	doc := New()
	for i := 0; i < 5; i++ {
		doc.Commit()
	}
	require.Equal(t, uint64(5), doc.Version())
}

// Invariant 1: flattening equals the baseline that would result from
// applying the same edits sequentially by byte.
func TestInvariant_FlattenEqualsSequentialApplication(t *testing.T) {
	doc := New()
	require.NoError(t, doc.InsertText(0, []byte("abc")))
	doc.Commit()
	require.NoError(t, doc.InsertText(3, []byte("def")))
	doc.Commit()
	require.Equal(t, "abcdef", string(doc.Flatten()))

	require.NoError(t, doc.DeleteRange(1, 2))
	require.NoError(t, doc.InsertText(6, []byte("ghi")))
	doc.Commit()
	require.Equal(t, "adefghi", string(doc.Flatten()))
}

func TestIsDeletedPosition(t *testing.T) {
	doc := New()
	require.NoError(t, doc.InsertText(0, []byte("Hello World")))
	doc.Commit()

	require.NoError(t, doc.DeleteRange(0, 5))
	require.True(t, doc.IsDeletedPosition(0))
	require.False(t, doc.IsDeletedPosition(6))
}
