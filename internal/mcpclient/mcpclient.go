// Package mcpclient connects to a single upstream Model Context Protocol
// server, lists the tools it exposes, and executes tool calls against it.
//
// Each call to [Connect] establishes a fresh transport and session; callers
// that need connection reuse or failure memoisation across many calls should
// do so at a higher layer (see internal/mcpregistry), which this package
// deliberately knows nothing about.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Transport selects the connection mechanism for an MCP server.
type Transport string

const (
	// TransportStdio spawns a subprocess and communicates over stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP communicates via the MCP Streamable HTTP
	// protocol.
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// ServerConfig describes how to connect to a single MCP server.
type ServerConfig struct {
	// Name is a human-readable identifier, used only in error messages.
	Name string

	Transport Transport

	// Command is the executable (with optional arguments) launched when
	// Transport is TransportStdio.
	Command string

	// URL is the endpoint address used when Transport is
	// TransportStreamableHTTP.
	URL string

	// Env holds additional environment variables injected into the
	// subprocess when Transport is TransportStdio.
	Env map[string]string

	// AuthHeader holds a resolved Authorization header value for the
	// streamable-HTTP transport. Connect does not attach it to requests on
	// either transport.
	AuthHeader string
}

// ToolDefinition describes a single tool as advertised by an MCP server.
type ToolDefinition struct {
	Name         string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
}

// ToolResult holds the outcome of a single tool execution.
type ToolResult struct {
	// Content is the tool's raw JSON output (structured content when the
	// server provides it, otherwise the concatenated text content parsed as
	// JSON if possible, falling back to a JSON string literal).
	Content json.RawMessage

	// IsError indicates an application-level error: the call itself
	// succeeded at the transport layer but the tool reported failure.
	IsError bool
}

// ConnectErrorKind categorises why a connection attempt to an MCP server
// failed, so callers can decide whether to retry, prompt for credentials, or
// give up.
type ConnectErrorKind int

const (
	// KindFailed is a generic, non-recoverable connection failure.
	KindFailed ConnectErrorKind = iota
	// KindRequiresAuth means the server rejected the connection for lack of
	// credentials that can plausibly be supplied non-interactively (an API
	// key or bearer token).
	KindRequiresAuth
	// KindRequiresOAuth means the server demands an interactive OAuth
	// authorization-code flow.
	KindRequiresOAuth
)

// ConnectError wraps a connection failure with its ConnectErrorKind.
type ConnectError struct {
	Kind ConnectErrorKind
	Err  error
}

func (e *ConnectError) Error() string { return e.Err.Error() }
func (e *ConnectError) Unwrap() error { return e.Err }

// classifyConnectError inspects an error returned by the MCP SDK's Connect
// and categorises it. The SDK surfaces HTTP status codes and WWW-Authenticate
// semantics as plain error text, so this is a best-effort string match
// rather than a typed switch — mirroring the source system's own approach of
// mapping connection failures into a small enum of actionable categories.
func classifyConnectError(err error) *ConnectError {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "oauth"):
		return &ConnectError{Kind: KindRequiresOAuth, Err: err}
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication"):
		return &ConnectError{Kind: KindRequiresAuth, Err: err}
	default:
		return &ConnectError{Kind: KindFailed, Err: err}
	}
}

// Session is a live connection to one MCP server.
type Session struct {
	serverName string
	session    *mcpsdk.ClientSession
}

// Connect dials the server described by cfg and returns a live Session. The
// caller must call Close when done.
func Connect(ctx context.Context, cfg ServerConfig) (*Session, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("mcpclient: server config must have a non-empty name")
	}
	if !cfg.Transport.IsValid() {
		return nil, fmt.Errorf("mcpclient: unknown transport %q for server %q", cfg.Transport, cfg.Name)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "pctxgo", Version: "1.0.0"}, nil)

	var transport mcpsdk.Transport
	switch cfg.Transport {
	case TransportStdio:
		executable, args := splitCommand(cfg.Command)
		if executable == "" {
			return nil, fmt.Errorf("mcpclient: stdio server %q requires a non-empty command", cfg.Name)
		}
		cmd := exec.CommandContext(ctx, executable, args...)
		if len(cfg.Env) > 0 {
			cmd.Env = os.Environ()
		}
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}
	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("mcpclient: streamable-http server %q requires a non-empty url", cfg.Name)
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
	}

	sess, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: failed to connect to server %q: %w", cfg.Name, classifyConnectError(err))
	}

	return &Session{serverName: cfg.Name, session: sess}, nil
}

// ListTools enumerates every tool the connected server advertises,
// transparently following pagination via the SDK's iterator.
func (s *Session) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	var out []ToolDefinition
	for tool, err := range s.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcpclient: failed to list tools for server %q: %w", s.serverName, err)
		}
		out = append(out, ToolDefinition{
			Name:         tool.Name,
			Description:  tool.Description,
			InputSchema:  schemaToMap(tool.InputSchema),
			OutputSchema: schemaToMap(tool.OutputSchema),
		})
	}
	return out, nil
}

// CallTool invokes the named tool with the given arguments (may be nil for
// a parameter-less tool).
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	result, err := s.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("mcpclient: call to tool %q on server %q failed: %w", name, s.serverName, err)
	}

	content, err := coalesceContent(result)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: decoding result of tool %q on server %q: %w", name, s.serverName, err)
	}

	return &ToolResult{Content: content, IsError: result.IsError}, nil
}

// Close releases the underlying connection.
func (s *Session) Close() error {
	if err := s.session.Close(); err != nil {
		return fmt.Errorf("mcpclient: error closing server %q: %w", s.serverName, err)
	}
	return nil
}

// coalesceContent prefers structured content when the server provided it;
// otherwise it concatenates text content blocks and tries to parse the
// result as JSON, falling back to a JSON string literal of the raw text.
func coalesceContent(result *mcpsdk.CallToolResult) (json.RawMessage, error) {
	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	text := sb.String()

	var probe any
	if json.Unmarshal([]byte(text), &probe) == nil {
		return json.RawMessage(text), nil
	}
	return json.Marshal(text)
}

func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}

func splitCommand(command string) (executable string, args []string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
