package restapi

import (
	"encoding/json"

	"github.com/lambdamechanic/pctxgo/internal/secrets"
)

// SessionHeader is the HTTP header a client sets to identify which
// code-mode session an operation applies to. The WebSocket upgrade endpoint
// reads the id from the "session_id" query parameter and falls back to this
// header (browsers cannot set arbitrary headers on a WebSocket handshake).
const SessionHeader = "X-Code-Mode-Session-Id"

// ErrorCode classifies an API error, mirroring the three kinds spec.md §7
// surfaces over REST.
type ErrorCode string

const (
	ErrCodeInvalidSession ErrorCode = "invalid_session"
	ErrCodeInternal       ErrorCode = "internal"
	ErrCodeExecution      ErrorCode = "execution"
)

// ErrorData is the JSON body of every non-2xx response.
type ErrorData struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// CreateSessionResponse is the body of POST /code-mode/session/create.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CloseSessionResponse is the body of POST /code-mode/session/close.
type CloseSessionResponse struct {
	Success bool `json:"success"`
}

// RegisterToolsRequest is the body of POST /register/tools.
type RegisterToolsRequest struct {
	Tools []CallbackConfig `json:"tools"`
}

// CallbackConfig describes one callback-backed tool to register. The
// implementation itself is not carried in the request — invoking it
// dispatches over the WebSocket connection currently attached to this
// session (see internal/wsbridge).
type CallbackConfig struct {
	Name         string `json:"name"`
	Namespace    string `json:"namespace"`
	Description  string `json:"description,omitempty"`
	InputSchema  any    `json:"input_schema,omitempty"`
	OutputSchema any    `json:"output_schema,omitempty"`
}

// RegisterToolsResponse is the body of POST /register/tools.
type RegisterToolsResponse struct {
	Registered int `json:"registered"`
}

// RegisterMCPServersRequest is the body of POST /register/servers.
type RegisterMCPServersRequest struct {
	Servers []MCPServerConfig `json:"servers"`
}

// MCPServerConfig describes one MCP server to connect for the duration of
// this session.
type MCPServerConfig struct {
	Name      string            `json:"name"`
	Transport string            `json:"transport"`
	URL       string            `json:"url,omitempty"`
	Command   string            `json:"command,omitempty"`
	Env       map[string]string `json:"env,omitempty"`

	// Auth, if set, is resolved via internal/secrets into
	// mcpclient.ServerConfig.AuthHeader; mcpclient.Connect does not send
	// that value to the server.
	Auth *secrets.Ref `json:"auth,omitempty"`
}

// RegisterMCPServersResponse is the body of POST /register/servers.
type RegisterMCPServersResponse struct {
	Registered int      `json:"registered"`
	Failed     []string `json:"failed,omitempty"`
}

// ListFunctionsResponse is the body of POST /code-mode/functions/list.
type ListFunctionsResponse struct {
	Functions []ListedFunction `json:"functions"`
}

// ListedFunction is one entry in ListFunctionsResponse.
type ListedFunction struct {
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GetFunctionDetailsRequest is the body of POST /code-mode/functions/details.
type GetFunctionDetailsRequest struct {
	FunctionIDs []string `json:"function_ids"`
}

// GetFunctionDetailsResponse is the body of POST /code-mode/functions/details.
type GetFunctionDetailsResponse struct {
	Functions []FunctionDetails `json:"functions"`
}

// ExecuteCodeResult is the execute_code WebSocket response payload — a
// JSON-friendly projection of sandbox.ExecutionResult (whose Err field is a
// plain error interface and not itself meaningfully serializable).
type ExecuteCodeResult struct {
	Success bool            `json:"success"`
	Stdout  string          `json:"stdout,omitempty"`
	Stderr  string          `json:"stderr,omitempty"`
	Output  json.RawMessage `json:"output,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// FunctionDetails is one entry in GetFunctionDetailsResponse.
type FunctionDetails struct {
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputType   string `json:"input_type"`
	OutputType  string `json:"output_type"`
	Types       string `json:"types"`
}
