// Package restapi is the HTTP+WebSocket surface for pctxd: session
// lifecycle, tool/MCP-server registration, function listing, and the /ws
// upgrade entry point, all operating on a session.Backend-held CodeMode.
package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lambdamechanic/pctxgo/internal/calltools"
	"github.com/lambdamechanic/pctxgo/internal/codegen"
	"github.com/lambdamechanic/pctxgo/internal/health"
	"github.com/lambdamechanic/pctxgo/internal/observe"
	"github.com/lambdamechanic/pctxgo/internal/session"
	"github.com/lambdamechanic/pctxgo/internal/wsbridge"
)

// Version is reported in HealthResponse. Overridden at build time via
// -ldflags if a release process wants to stamp a real version string.
var Version = "dev"

// Server wires the session backend, the WebSocket bridge, and metrics into
// an http.Handler.
type Server struct {
	backend   session.Backend
	ws        *wsbridge.Manager
	metrics   *observe.Metrics
	health    *health.Handler
	logger    *slog.Logger
	wsOrigins []string
}

// New constructs a Server. logger defaults to slog.Default() if nil.
func New(backend session.Backend, ws *wsbridge.Manager, metrics *observe.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := health.New(
		health.Checker{Name: "session_backend", Check: func(ctx context.Context) error {
			_, err := backend.Count(ctx)
			return err
		}},
	)
	return &Server{backend: backend, ws: ws, metrics: metrics, health: h, logger: logger}
}

// Handler returns the http.Handler serving every pctxd REST+WebSocket route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /code-mode/session/create", s.handleCreateSession)
	mux.HandleFunc("POST /code-mode/session/close", s.handleCloseSession)
	mux.HandleFunc("POST /code-mode/functions/list", s.handleListFunctions)
	mux.HandleFunc("POST /code-mode/functions/details", s.handleGetFunctionDetails)
	mux.HandleFunc("POST /register/tools", s.handleRegisterTools)
	mux.HandleFunc("POST /register/servers", s.handleRegisterServers)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return observe.Middleware(s.metrics)(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := session.New(time.Now())
	if err := s.backend.Insert(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "creating session", err)
		return
	}
	s.metrics.ActiveSessions.Add(r.Context(), 1)
	writeJSON(w, http.StatusOK, CreateSessionResponse{SessionID: sess.ID.String()})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.backend.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeInvalidSession, "closing session", err)
		return
	}
	s.metrics.ActiveSessions.Add(r.Context(), -1)
	writeJSON(w, http.StatusOK, CloseSessionResponse{Success: true})
}

func (s *Server) handleListFunctions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := s.backend.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeInvalidSession, "looking up session", err)
		return
	}
	listed, err := sess.CodeMode.ListFunctions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "listing functions", err)
		return
	}
	out := make([]ListedFunction, 0, len(listed))
	for _, f := range listed {
		out = append(out, ListedFunction{Namespace: f.Namespace, Name: f.Name, Description: f.Description})
	}
	writeJSON(w, http.StatusOK, ListFunctionsResponse{Functions: out})
}

func (s *Server) handleGetFunctionDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req GetFunctionDetailsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ids := make([]codegen.FunctionID, 0, len(req.FunctionIDs))
	for _, raw := range req.FunctionIDs {
		fid, err := codegen.ParseFunctionID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidSession, "parsing function id", err)
			return
		}
		ids = append(ids, fid)
	}

	sess, err := s.backend.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeInvalidSession, "looking up session", err)
		return
	}
	details, err := sess.CodeMode.GetFunctionDetails(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeExecution, "resolving function details", err)
		return
	}
	out := make([]FunctionDetails, 0, len(details))
	for _, d := range details {
		var types string
		for _, decl := range d.Types {
			types += decl.Body + "\n"
		}
		out = append(out, FunctionDetails{
			Namespace:   d.Namespace,
			Name:        d.Name,
			Description: d.Description,
			InputType:   d.InputType,
			OutputType:  d.OutputType,
			Types:       types,
		})
	}
	writeJSON(w, http.StatusOK, GetFunctionDetailsResponse{Functions: out})
}

func (s *Server) handleRegisterTools(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req RegisterToolsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.backend.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeInvalidSession, "looking up session", err)
		return
	}

	registered := 0
	for _, tool := range req.Tools {
		cb := s.remoteCallback(id, tool.Namespace, tool.Name)
		metadata := calltools.Metadata{
			Namespace:    tool.Namespace,
			Name:         tool.Name,
			Description:  tool.Description,
			InputSchema:  tool.InputSchema,
			OutputSchema: tool.OutputSchema,
		}
		if err := sess.CodeMode.RegisterCallback(metadata, cb); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeExecution, "registering tool", err)
			return
		}
		registered++
	}
	if err := s.backend.Update(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "saving session", err)
		return
	}
	writeJSON(w, http.StatusOK, RegisterToolsResponse{Registered: registered})
}

// remoteCallback returns a calltools.CallbackFunc that forwards invocations
// over the WebSocket connection currently attached to sessionID. The
// implementation of a REST-registered callback tool always lives on the
// client side — this server never executes one itself.
func (s *Server) remoteCallback(sessionID uuid.UUID, namespace, name string) calltools.CallbackFunc {
	return func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		cs, ok := s.ws.GetForCodeModeSession(sessionID)
		if !ok {
			return nil, fmt.Errorf("restapi: no websocket client attached to session %s", sessionID)
		}
		start := time.Now()
		out, err := cs.ExecuteCallback(ctx, namespace, name, input)
		s.metrics.CallbackDuration.Record(ctx, time.Since(start).Seconds())
		return out, err
	}
}

func (s *Server) handleRegisterServers(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req RegisterMCPServersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.backend.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeInvalidSession, "looking up session", err)
		return
	}

	registered := 0
	var failed []string
	for _, srv := range req.Servers {
		cfg, err := mcpServerConfigFrom(srv)
		if err != nil {
			s.logger.Warn("failed to resolve mcp server auth", "server", srv.Name, "err", err)
			failed = append(failed, srv.Name)
			continue
		}
		if err := sess.CodeMode.AddServer(cfg); err != nil {
			s.logger.Warn("failed to register mcp server", "server", srv.Name, "err", err)
			failed = append(failed, srv.Name)
			continue
		}
		registered++
	}
	if err := s.backend.Update(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "saving session", err)
		return
	}
	writeJSON(w, http.StatusOK, RegisterMCPServersResponse{Registered: registered, Failed: failed})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("session_id")
	if idStr == "" {
		idStr = r.Header.Get(SessionHeader)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidSession, "parsing session id", err)
		return
	}
	sess, err := s.backend.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeInvalidSession, "looking up session", err)
		return
	}
	if err := sess.AttachWebSocket(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidSession, "attaching websocket", err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		sess.DetachWebSocket()
		return
	}
	s.metrics.ActiveWebSocketConnections.Add(r.Context(), 1)
	defer s.metrics.ActiveWebSocketConnections.Add(r.Context(), -1)
	defer sess.DetachWebSocket()

	cs := s.ws.AddSession(conn, id)
	handler := &executeHandler{server: s, sessionID: id}
	if err := s.ws.Serve(r.Context(), cs, handler); err != nil {
		s.logger.Warn("websocket session ended with error", "session", id, "err", err)
	}
}
