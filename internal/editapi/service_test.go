package editapi

import (
	"testing"

	"github.com/collabmd/server/internal/document"
	"github.com/stretchr/testify/require"
)

func TestParse_Insert(t *testing.T) {
	cmd, err := Parse("INSERT 0 5 Hello World")
	require.NoError(t, err)
	require.Equal(t, KindInsert, cmd.Kind)
	require.Equal(t, uint64(0), cmd.Version)
	require.Equal(t, 5, cmd.Pos)
	require.Equal(t, "Hello World", cmd.Text)
}

func TestParse_Link(t *testing.T) {
	cmd, err := Parse("LINK 3 0 5 https://example.com")
	require.NoError(t, err)
	require.Equal(t, 0, cmd.Start)
	require.Equal(t, 5, cmd.End)
	require.Equal(t, "https://example.com", cmd.URL)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("DEL 0 notanumber 4")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParse_UnknownCommand(t *testing.T) {
	_, err := Parse("FROBNICATE 0 1")
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestApply_OutdatedVersion(t *testing.T) {
	doc := document.New()
	svc := NewService()

	r := svc.Apply(doc, Command{Kind: KindInsert, Version: 7, Pos: 0, Text: "x"})
	require.Equal(t, ResultOutdatedVersion, r)
	require.Equal(t, "", string(doc.Flatten()))
}

func TestApply_InsertThenCommit(t *testing.T) {
	doc := document.New()
	svc := NewService()

	r := svc.Apply(doc, Command{Kind: KindInsert, Version: 0, Pos: 0, Text: "World"})
	require.Equal(t, ResultSuccess, r)
	r = svc.Apply(doc, Command{Kind: KindInsert, Version: 0, Pos: 0, Text: "Hello "})
	require.Equal(t, ResultSuccess, r)
	doc.Commit()

	require.Equal(t, "Hello World", string(doc.Flatten()))
}

func TestApply_Heading(t *testing.T) {
	doc := document.New()
	svc := NewService()

	require.Equal(t, ResultSuccess, svc.Apply(doc, Command{Kind: KindHeading, Version: 0, Level: 2, Pos: 0}))
	doc.Commit()
	require.Equal(t, "## ", string(doc.Flatten()))

	require.Equal(t, ResultSuccess, svc.Apply(doc, Command{Kind: KindHeading, Version: 1, Level: 1, Pos: 3}))
	doc.Commit()
	require.Equal(t, "## \n# ", string(doc.Flatten()))
}

func TestApply_HeadingInvalidLevel(t *testing.T) {
	doc := document.New()
	svc := NewService()

	r := svc.Apply(doc, Command{Kind: KindHeading, Version: 0, Level: 9, Pos: 0})
	require.Equal(t, ResultInvalidPosition, r)
}

func TestApply_Bold(t *testing.T) {
	doc := document.New()
	svc := NewService()
	require.Equal(t, ResultSuccess, svc.Apply(doc, Command{Kind: KindInsert, Version: 0, Pos: 0, Text: "Hello World"}))
	doc.Commit()

	r := svc.Apply(doc, Command{Kind: KindBold, Version: 1, Start: 0, End: 5})
	require.Equal(t, ResultSuccess, r)
	doc.Commit()
	require.Equal(t, "**Hello** World", string(doc.Flatten()))
}

func TestApply_BoldInvalidRange(t *testing.T) {
	doc := document.New()
	svc := NewService()
	r := svc.Apply(doc, Command{Kind: KindBold, Version: 0, Start: 4, End: 4})
	require.Equal(t, ResultInvalidPosition, r)
}

func TestApply_Link(t *testing.T) {
	doc := document.New()
	svc := NewService()
	require.Equal(t, ResultSuccess, svc.Apply(doc, Command{Kind: KindInsert, Version: 0, Pos: 0, Text: "docs"}))
	doc.Commit()

	r := svc.Apply(doc, Command{Kind: KindLink, Version: 1, Start: 0, End: 4, URL: "https://go.dev"})
	require.Equal(t, ResultSuccess, r)
	doc.Commit()
	require.Equal(t, "[docs](https://go.dev)", string(doc.Flatten()))
}

func TestApply_OrderedList(t *testing.T) {
	doc := document.New()
	svc := NewService()
	require.Equal(t, ResultSuccess, svc.Apply(doc, Command{Kind: KindInsert, Version: 0, Pos: 0, Text: "1. a\n2. b\n"}))
	doc.Commit()

	r := svc.Apply(doc, Command{Kind: KindOrderedList, Version: 1, Pos: 0})
	require.Equal(t, ResultSuccess, r)
	doc.Commit()

	require.Equal(t, "1. \n2. a\n3. b\n", string(doc.Flatten()))
}

func TestApply_DeletedPosition(t *testing.T) {
	doc := document.New()
	svc := NewService()
	require.Equal(t, ResultSuccess, svc.Apply(doc, Command{Kind: KindInsert, Version: 0, Pos: 0, Text: "Hello World"}))
	doc.Commit()

	require.Equal(t, ResultSuccess, svc.Apply(doc, Command{Kind: KindDel, Version: 1, Pos: 0, Len: 5}))
	r := svc.Apply(doc, Command{Kind: KindInsert, Version: 1, Pos: 2, Text: "X"})
	require.Equal(t, ResultDeletedPosition, r)
}

func TestApply_Unauthorised_NotEditAPIConcern(t *testing.T) {
	// UNAUTHORISED is produced by the batch loop before Apply is called;
	// editapi itself has no notion of permission.
	doc := document.New()
	svc := NewService()
	r := svc.Apply(doc, Command{Kind: KindInsert, Version: 0, Pos: 0, Text: "x"})
	require.Equal(t, ResultSuccess, r)
}
