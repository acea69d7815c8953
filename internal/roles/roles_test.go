package roles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

func writeRoleFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.txt")
	require.NoError(t, writeFile(path, contents))
	return path
}

func TestStore_Lookup(t *testing.T) {
	path := writeRoleFile(t, "alice write\nbob read\n# comment\n\n")
	store := New(path)

	role, err := store.Lookup("alice")
	require.NoError(t, err)
	require.Equal(t, RoleWrite, role)

	role, err = store.Lookup("bob")
	require.NoError(t, err)
	require.Equal(t, RoleRead, role)
}

func TestStore_LookupUnknown(t *testing.T) {
	path := writeRoleFile(t, "alice write\n")
	store := New(path)

	_, err := store.Lookup("carol")
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestStore_RereadsFile(t *testing.T) {
	path := writeRoleFile(t, "alice read\n")
	store := New(path)

	role, err := store.Lookup("alice")
	require.NoError(t, err)
	require.Equal(t, RoleRead, role)

	require.NoError(t, writeFile(path, "alice write\n"))

	role, err = store.Lookup("alice")
	require.NoError(t, err)
	require.Equal(t, RoleWrite, role)
}
