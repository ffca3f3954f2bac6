package session

import (
	"context"

	"github.com/google/uuid"
)

// Backend is the pluggable session store every code-mode session passes
// through. Implementations decide where session state lives: [LocalBackend]
// keeps everything in process memory; a Postgres-backed implementation (see
// internal/sessionpg) additionally persists session metadata and an
// execution audit trail so it survives this process restarting, even though
// the live CodeMode itself does not.
//
// All methods must be safe for concurrent use.
type Backend interface {
	// Get returns the session registered under id.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// Insert adds a new session. It returns an error if id is already
	// registered.
	Insert(ctx context.Context, s *Session) error

	// Update persists any changes made to s since it was retrieved.
	// LocalBackend's implementation stores s under its id and returns an
	// error if no session is registered under that id; backends with
	// external storage persist it there.
	Update(ctx context.Context, s *Session) error

	// Delete removes the session registered under id. Deleting an unknown
	// id is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// Exists reports whether a session is registered under id.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Count returns the number of currently registered sessions.
	Count(ctx context.Context) (int, error)

	// List returns every currently registered session.
	List(ctx context.Context) ([]*Session, error)

	// PostExecution is called after a script finishes running in session
	// id, for backends that keep an audit trail. LocalBackend's
	// implementation is a no-op.
	PostExecution(ctx context.Context, id uuid.UUID, success bool) error
}
