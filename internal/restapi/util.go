package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/lambdamechanic/pctxgo/internal/mcpclient"
	"github.com/lambdamechanic/pctxgo/internal/secrets"
)

func mcpServerConfigFrom(srv MCPServerConfig) (mcpclient.ServerConfig, error) {
	cfg := mcpclient.ServerConfig{
		Name:      srv.Name,
		Transport: mcpclient.Transport(srv.Transport),
		Command:   srv.Command,
		URL:       srv.URL,
		Env:       srv.Env,
	}
	if srv.Auth != nil {
		header, err := secrets.Resolve(*srv.Auth)
		if err != nil {
			return mcpclient.ServerConfig{}, fmt.Errorf("resolving auth for server %q: %w", srv.Name, err)
		}
		cfg.AuthHeader = header
	}
	return cfg, nil
}

// sessionID extracts and parses the session id from SessionHeader, writing
// an error response and returning ok=false if it is missing or malformed.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(SessionHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidSession, "missing "+SessionHeader+" header", nil)
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidSession, "invalid session id", err)
		return uuid.UUID{}, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidSession, "decoding request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string, err error) {
	data := ErrorData{Code: code, Message: message}
	if err != nil {
		data.Details = err.Error()
	}
	writeJSON(w, status, data)
}
