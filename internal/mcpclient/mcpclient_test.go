package mcpclient

import (
	"context"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestTransportIsValid(t *testing.T) {
	if !TransportStdio.IsValid() {
		t.Errorf("stdio should be valid")
	}
	if !TransportStreamableHTTP.IsValid() {
		t.Errorf("streamable-http should be valid")
	}
	if Transport("sse").IsValid() {
		t.Errorf("sse should not be valid")
	}
}

func TestConnectRejectsEmptyName(t *testing.T) {
	_, err := Connect(context.Background(), ServerConfig{Transport: TransportStdio, Command: "/bin/true"})
	if err == nil {
		t.Fatalf("expected error for missing name")
	}
}

func TestConnectRejectsUnknownTransport(t *testing.T) {
	_, err := Connect(context.Background(), ServerConfig{Name: "x", Transport: "sse"})
	if err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}

func TestConnectRejectsEmptyStdioCommand(t *testing.T) {
	_, err := Connect(context.Background(), ServerConfig{Name: "x", Transport: TransportStdio})
	if err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestConnectRejectsEmptyHTTPURL(t *testing.T) {
	_, err := Connect(context.Background(), ServerConfig{Name: "x", Transport: TransportStreamableHTTP})
	if err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestClassifyConnectError(t *testing.T) {
	cases := []struct {
		msg  string
		want ConnectErrorKind
	}{
		{"server requires oauth authorization", KindRequiresOAuth},
		{"received 401 unauthorized", KindRequiresAuth},
		{"connection refused", KindFailed},
	}
	for _, c := range cases {
		got := classifyConnectError(errors.New(c.msg))
		if got.Kind != c.want {
			t.Errorf("classifyConnectError(%q).Kind = %v, want %v", c.msg, got.Kind, c.want)
		}
	}
}

func TestSplitCommand(t *testing.T) {
	exe, args := splitCommand("/usr/bin/foo --bar baz")
	if exe != "/usr/bin/foo" {
		t.Errorf("got exe %q", exe)
	}
	if len(args) != 2 || args[0] != "--bar" || args[1] != "baz" {
		t.Errorf("got args %v", args)
	}

	exe, args = splitCommand("")
	if exe != "" || args != nil {
		t.Errorf("expected empty result for empty command, got %q %v", exe, args)
	}
}

// TestListToolsIncludesOutputSchema wires a real MCP client/server pair over
// an in-memory transport (no subprocess or network involved) and checks that
// ListTools carries through both the input and output schema the server
// advertised for a tool.
func TestListToolsIncludesOutputSchema(t *testing.T) {
	ctx := context.Background()

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "test-server", Version: "1.0.0"}, nil)
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "echo",
		Description: "echoes its input",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"text": {Type: "string"}},
			Required:   []string{"text"},
		},
		OutputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"echoed": {Type: "string"}},
			Required:   []string{"echoed"},
		},
	}, func(_ context.Context, _ *mcpsdk.CallToolRequest, args map[string]any) (*mcpsdk.CallToolResult, any, error) {
		return &mcpsdk.CallToolResult{}, map[string]any{"echoed": args["text"]}, nil
	})

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = clientSession.Close() })

	sess := &Session{serverName: "test-server", session: clientSession}

	tools, err := sess.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}

	tool := tools[0]
	if tool.Name != "echo" {
		t.Errorf("got tool name %q", tool.Name)
	}
	if tool.InputSchema == nil {
		t.Errorf("expected InputSchema to be populated")
	}
	if tool.OutputSchema == nil {
		t.Fatalf("expected OutputSchema to be populated, got nil")
	}
	props, _ := tool.OutputSchema["properties"].(map[string]any)
	if _, ok := props["echoed"]; !ok {
		t.Errorf("expected OutputSchema properties to include %q, got %+v", "echoed", tool.OutputSchema)
	}
}
