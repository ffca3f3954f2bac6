package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// CallbackTimeout bounds how long the server waits for the client to answer
// an outbound execute_tool callback before giving up.
const CallbackTimeout = 30 * time.Second

// pendingCall is a single in-flight request awaiting its response.
type pendingCall struct {
	responseCh chan *Response
}

// ClientSession is one connected WebSocket client, attached to exactly one
// code-mode session.
type ClientSession struct {
	ID                uuid.UUID
	CodeModeSessionID uuid.UUID

	conn *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]*pendingCall
}

// Manager tracks every connected ClientSession.
//
// Looking up which session holds the pending call for an inbound response
// requires searching every session's pending map, not just the one the
// response arrived on: a response can be read on a different goroutine
// iteration than the one that dispatched the matching request, and nothing
// in the wire format says which session's request it answers beyond the
// shared id space. This mirrors the upstream source's own
// handle_execution_response, which does the same cross-session scan.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*ClientSession
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[uuid.UUID]*ClientSession)}
}

// AddSession registers conn as the WebSocket client for codeModeSessionID
// and returns the new ClientSession.
func (m *Manager) AddSession(conn *websocket.Conn, codeModeSessionID uuid.UUID) *ClientSession {
	cs := &ClientSession{
		ID:                uuid.New(),
		CodeModeSessionID: codeModeSessionID,
		conn:              conn,
		pending:           make(map[string]*pendingCall),
	}
	m.mu.Lock()
	m.sessions[cs.ID] = cs
	m.mu.Unlock()
	return cs
}

// RemoveSession detaches and forgets the named ClientSession.
func (m *Manager) RemoveSession(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// GetForCodeModeSession returns the ClientSession attached to
// codeModeSessionID, if any.
func (m *Manager) GetForCodeModeSession(codeModeSessionID uuid.UUID) (*ClientSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, cs := range m.sessions {
		if cs.CodeModeSessionID == codeModeSessionID {
			return cs, true
		}
	}
	return nil, false
}

// HandleExecutionResponse routes an inbound response to whichever session's
// pending map is holding the matching request id, searching every attached
// session rather than assuming the caller already knows which one.
func (m *Manager) HandleExecutionResponse(resp *Response) error {
	id := string(resp.ID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, cs := range m.sessions {
		cs.pendingMu.Lock()
		call, ok := cs.pending[id]
		cs.pendingMu.Unlock()
		if ok {
			call.responseCh <- resp
			return nil
		}
	}
	return fmt.Errorf("wsbridge: no pending call found for response id %s", id)
}

// ExecuteCallback sends an execute_tool request to cs's client and blocks
// until the matching response arrives, the context is cancelled, or
// CallbackTimeout elapses — whichever happens first. The pending-call entry
// is always cleaned up, regardless of outcome.
func (cs *ClientSession) ExecuteCallback(ctx context.Context, namespace, name string, args json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()

	id := uuid.New().String()
	idJSON, _ := json.Marshal(id)

	call := &pendingCall{responseCh: make(chan *Response, 1)}
	cs.pendingMu.Lock()
	cs.pending[id] = call
	cs.pendingMu.Unlock()
	defer func() {
		cs.pendingMu.Lock()
		delete(cs.pending, id)
		cs.pendingMu.Unlock()
	}()

	paramsJSON, err := json.Marshal(ExecuteToolParams{Namespace: namespace, Name: name, Args: args})
	if err != nil {
		return nil, fmt.Errorf("wsbridge: marshal execute_tool params: %w", err)
	}

	req := Request{JSONRPC: "2.0", ID: idJSON, Method: MethodExecuteTool, Params: paramsJSON}

	cs.writeMu.Lock()
	err = wsjson.Write(ctx, cs.conn, req)
	cs.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("wsbridge: send execute_tool: %w", err)
	}

	select {
	case resp := <-call.responseCh:
		if resp.Error != nil {
			return nil, fmt.Errorf("wsbridge: callback %s.%s failed (code %d): %s", namespace, name, resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wsbridge: callback %s.%s timed out: %w", namespace, name, ctx.Err())
	}
}

// Close closes the underlying connection with a normal closure status.
func (cs *ClientSession) Close() error {
	return cs.conn.Close(websocket.StatusNormalClosure, "session closed")
}
