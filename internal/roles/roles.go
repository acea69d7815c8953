// Package roles implements the read-only role store: a line-oriented
// "name SP role" text file, re-read on every authentication attempt so an
// operator can edit it while the server runs.
package roles

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/collabmd/server/internal/apperr"
)

// Role is a user's write capability.
type Role string

const (
	RoleWrite Role = "write"
	RoleRead  Role = "read"
)

// ErrUnknownUser is returned by Lookup for a name absent from the store.
// It wraps apperr.ErrNotFound, so callers can use either sentinel.
var ErrUnknownUser = fmt.Errorf("roles: unknown user: %w", apperr.ErrNotFound)

// Store points at the on-disk role file. The zero value plus a Path is
// usable directly; there is no cached state to construct.
type Store struct {
	Path string
}

// New returns a Store reading from path.
func New(path string) *Store {
	return &Store{Path: path}
}

// Lookup re-reads the role file and returns the role for user, or
// ErrUnknownUser if the name is not listed.
func (s *Store) Lookup(user string) (Role, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return "", fmt.Errorf("roles: open %s: %w", s.Path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		name, role := fields[0], Role(fields[1])
		if name != user {
			continue
		}
		if role != RoleWrite && role != RoleRead {
			continue
		}
		return role, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("roles: scan %s: %w", s.Path, err)
	}
	return "", ErrUnknownUser
}
