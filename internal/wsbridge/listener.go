package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Handler answers the inbound request methods a client may send over its
// WebSocket connection, once attached to a code-mode session.
type Handler interface {
	RegisterTools(ctx context.Context, raw json.RawMessage) (json.RawMessage, error)
	RegisterServers(ctx context.Context, raw json.RawMessage) (json.RawMessage, error)
	ExecuteCode(ctx context.Context, params ExecuteCodeParams) (json.RawMessage, error)
	ExecuteTool(ctx context.Context, params ExecuteToolParams) (json.RawMessage, error)
}

// Serve reads frames from cs until the connection closes or ctx is
// cancelled, dispatching each one to m (to settle pending callbacks) or
// handler (to answer inbound requests).
func (m *Manager) Serve(ctx context.Context, cs *ClientSession, handler Handler) error {
	defer m.RemoveSession(cs.ID)
	defer cs.Close()

	for {
		var raw map[string]json.RawMessage
		if err := wsjson.Read(ctx, cs.conn, &raw); err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return fmt.Errorf("wsbridge: read: %w", err)
		}

		if isResponse(raw) {
			var resp Response
			if err := remarshal(raw, &resp); err != nil {
				continue
			}
			_ = m.HandleExecutionResponse(&resp)
			continue
		}

		var req Request
		if err := remarshal(raw, &req); err != nil {
			continue
		}
		go m.dispatchRequest(ctx, cs, req, handler)
	}
}

func (m *Manager) dispatchRequest(ctx context.Context, cs *ClientSession, req Request, handler Handler) {
	result, rpcErr := m.handle(ctx, req, handler)

	resp := Response{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}

	cs.writeMu.Lock()
	_ = wsjson.Write(ctx, cs.conn, resp)
	cs.writeMu.Unlock()
}

func (m *Manager) handle(ctx context.Context, req Request, handler Handler) (json.RawMessage, *ErrorObject) {
	switch req.Method {
	case MethodRegisterTools:
		out, err := handler.RegisterTools(ctx, req.Params)
		return out, wrapErr(err, ErrInvalidParams)
	case MethodRegisterServers:
		out, err := handler.RegisterServers(ctx, req.Params)
		return out, wrapErr(err, ErrInvalidParams)
	case MethodExecuteCode:
		var params ExecuteCodeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &ErrorObject{Code: ErrInvalidParams, Message: err.Error()}
		}
		out, err := handler.ExecuteCode(ctx, params)
		return out, wrapErr(err, ErrExecutionFailed)
	case MethodExecuteTool:
		var params ExecuteToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &ErrorObject{Code: ErrInvalidParams, Message: err.Error()}
		}
		out, err := handler.ExecuteTool(ctx, params)
		return out, wrapErr(err, ErrExecutionFailed)
	default:
		return nil, &ErrorObject{Code: ErrMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}
}

func wrapErr(err error, code int) *ErrorObject {
	if err == nil {
		return nil
	}
	return &ErrorObject{Code: code, Message: err.Error()}
}

func remarshal(raw map[string]json.RawMessage, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
