package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lambdamechanic/pctxgo/internal/calltools"
	"github.com/lambdamechanic/pctxgo/internal/wsbridge"
)

// executeHandler answers the WebSocket-side register/execute methods for
// one session, implementing wsbridge.Handler.
type executeHandler struct {
	server    *Server
	sessionID uuid.UUID
}

var _ wsbridge.Handler = (*executeHandler)(nil)

func (h *executeHandler) RegisterTools(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var req RegisterToolsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("restapi: decoding register_tools params: %w", err)
	}
	sess, err := h.server.backend.Get(ctx, h.sessionID)
	if err != nil {
		return nil, err
	}
	registered := 0
	for _, tool := range req.Tools {
		cb := h.server.remoteCallback(h.sessionID, tool.Namespace, tool.Name)
		metadata := calltools.Metadata{
			Namespace:    tool.Namespace,
			Name:         tool.Name,
			Description:  tool.Description,
			InputSchema:  tool.InputSchema,
			OutputSchema: tool.OutputSchema,
		}
		if err := sess.CodeMode.RegisterCallback(metadata, cb); err != nil {
			return nil, err
		}
		registered++
	}
	if err := h.server.backend.Update(ctx, sess); err != nil {
		return nil, err
	}
	return json.Marshal(RegisterToolsResponse{Registered: registered})
}

func (h *executeHandler) RegisterServers(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var req RegisterMCPServersRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("restapi: decoding register_servers params: %w", err)
	}
	sess, err := h.server.backend.Get(ctx, h.sessionID)
	if err != nil {
		return nil, err
	}
	registered := 0
	var failed []string
	for _, srv := range req.Servers {
		cfg, err := mcpServerConfigFrom(srv)
		if err != nil {
			failed = append(failed, srv.Name)
			continue
		}
		if err := sess.CodeMode.AddServer(cfg); err != nil {
			failed = append(failed, srv.Name)
			continue
		}
		registered++
	}
	if err := h.server.backend.Update(ctx, sess); err != nil {
		return nil, err
	}
	return json.Marshal(RegisterMCPServersResponse{Registered: registered, Failed: failed})
}

func (h *executeHandler) ExecuteCode(ctx context.Context, params wsbridge.ExecuteCodeParams) (json.RawMessage, error) {
	sess, err := h.server.backend.Get(ctx, h.sessionID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := sess.CodeMode.Execute(ctx, params.Code)
	status := "ok"
	if err != nil {
		status = "error"
	} else if !result.Success {
		status = "error"
	}
	h.server.metrics.RecordExecution(ctx, status, time.Since(start).Seconds())
	_ = h.server.backend.PostExecution(ctx, h.sessionID, err == nil && result.Success)
	if err != nil {
		return nil, err
	}
	resp := ExecuteCodeResult{Success: result.Success, Stdout: result.Stdout, Stderr: result.Stderr, Output: result.Output}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return json.Marshal(resp)
}

func (h *executeHandler) ExecuteTool(ctx context.Context, params wsbridge.ExecuteToolParams) (json.RawMessage, error) {
	sess, err := h.server.backend.Get(ctx, h.sessionID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := sess.CodeMode.CallMCPTool(ctx, params.Namespace, params.Name, params.Args)
	h.server.metrics.MCPToolCallDuration.Record(ctx, time.Since(start).Seconds())
	_ = h.server.backend.PostExecution(ctx, h.sessionID, err == nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Output json.RawMessage `json:"output"`
	}{Output: out})
}
