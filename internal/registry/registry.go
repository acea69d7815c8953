// Package registry implements the session registry: a fixed-capacity
// table mapping an admitted connection's slot to its user, role and
// outbound broadcast channel. Construction takes its backing role store
// plus a logger and exposes request/response style methods, backed by an
// in-process map instead of a repository, since a session has no
// existence beyond the server process.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/collabmd/server/internal/apperr"
	"github.com/collabmd/server/internal/roles"
	"github.com/google/uuid"
)

// ErrFull is returned by Admit when every slot is occupied.
var ErrFull = fmt.Errorf("registry: full: %w", apperr.ErrConflict)

// ErrUnauthorised is returned by Admit when the user is not in the role
// store. It wraps apperr.ErrNotFound, the same sentinel the role store
// itself returns for an unknown user.
var ErrUnauthorised = fmt.Errorf("registry: unauthorised: %w", apperr.ErrNotFound)

// Session is the admitted state of one connection: its user, role and
// the channel the batch loop writes broadcast lines to.
type Session struct {
	ID     string
	User   string
	Role   roles.Role
	Outbox chan<- string
}

// Registry is the fixed-capacity session table. Construct with New.
type Registry struct {
	mu       sync.Mutex
	roles    *roles.Store
	capacity int
	sessions map[string]*Session
	logger   *slog.Logger
}

// New returns a registry backed by the given role store, holding at most
// capacity concurrent sessions.
func New(roleStore *roles.Store, capacity int, logger *slog.Logger) *Registry {
	return &Registry{
		roles:    roleStore,
		capacity: capacity,
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Admit looks the user up in the role store and, if a slot is free,
// allocates a session carrying that role and outbox channel. Returns
// ErrUnauthorised for an unknown user and ErrFull once capacity is
// reached.
func (r *Registry) Admit(user string, outbox chan<- string) (*Session, error) {
	role, err := r.roles.Lookup(user)
	if err != nil {
		return nil, ErrUnauthorised
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.capacity {
		return nil, ErrFull
	}

	sess := &Session{
		ID:     uuid.NewString(),
		User:   user,
		Role:   role,
		Outbox: outbox,
	}
	r.sessions[sess.ID] = sess
	if r.logger != nil {
		r.logger.Info("session admitted", "session", sess.ID, "user", user, "role", role)
	}
	return sess, nil
}

// Release clears a slot. Releasing an unknown or already-released id is
// a no-op.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	if r.logger != nil {
		r.logger.Info("session released", "session", id)
	}
}

// Permission returns the role for an admitted session, used by the batch
// loop to check mutator commands against write capability before they
// are dispatched. ok is false once the session has been released.
func (r *Registry) Permission(id string) (role roles.Role, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, found := r.sessions[id]
	if !found {
		return "", false
	}
	return sess.Role, true
}

// Broadcast writes line to every currently admitted session's outbox. A
// session whose outbox is full drops the line rather than blocking the
// batch loop; the snapshot file remains the source of truth for a client
// that falls behind.
func (r *Registry) Broadcast(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sess := range r.sessions {
		select {
		case sess.Outbox <- line:
		default:
			if r.logger != nil {
				r.logger.Warn("broadcast dropped, outbox full", "session", sess.ID)
			}
		}
	}
}

// Count returns the number of currently admitted sessions, used by the
// operator CLI loop to refuse QUIT while sessions are active.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
