package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lambdamechanic/pctxgo/internal/codemode"
)

// Session is one code-mode session: a live CodeMode plus the bookkeeping a
// Backend needs to track it — when it was created, and whether a WebSocket
// client is currently attached to it.
//
// A Session is safe for concurrent use: CodeMode already guards its own
// registries, and the WebSocket-attachment flag here is guarded separately
// so attaching and executing never contend on the same lock.
type Session struct {
	ID        uuid.UUID
	CodeMode  *codemode.CodeMode
	CreatedAt time.Time

	wsMu       sync.Mutex
	wsAttached bool
}

// New creates a Session with a fresh id, an empty CodeMode, and CreatedAt
// set to now.
func New(now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		CodeMode:  codemode.New(),
		CreatedAt: now,
	}
}

// AttachWebSocket marks the session as having a WebSocket client attached.
// It returns an error if a client is already attached — only one
// WebSocket may be attached to a session at a time.
func (s *Session) AttachWebSocket() error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	if s.wsAttached {
		return fmt.Errorf("session: %s already has a websocket attached", s.ID)
	}
	s.wsAttached = true
	return nil
}

// DetachWebSocket clears the WebSocket-attached flag, permitting a new
// client to attach.
func (s *Session) DetachWebSocket() {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	s.wsAttached = false
}

// WebSocketAttached reports whether a client is currently attached.
func (s *Session) WebSocketAttached() bool {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return s.wsAttached
}
