package codegen

import (
	"strings"
	"testing"
)

func TestParseFunctionIDRoundTrip(t *testing.T) {
	id := FunctionID{Namespace: "dice", Name: "rollDie"}
	s := id.String()
	got, err := ParseFunctionID(s)
	if err != nil {
		t.Fatalf("ParseFunctionID(%q): %v", s, err)
	}
	if got != id {
		t.Errorf("got %+v, want %+v", got, id)
	}
}

func TestParseFunctionIDRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "noDot", "a.b.c", ".noNamespace", "noName."} {
		if _, err := ParseFunctionID(bad); err == nil {
			t.Errorf("ParseFunctionID(%q): expected error, got nil", bad)
		}
	}
}

func TestFunctionIDJSONRoundTrip(t *testing.T) {
	id := FunctionID{Namespace: "weather", Name: "forecast"}
	data, err := id.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(data) != `"weather.forecast"` {
		t.Errorf("got %s", data)
	}
	var got FunctionID
	if err := got.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got != id {
		t.Errorf("got %+v, want %+v", got, id)
	}
}

func TestNewToolSanitisesFnName(t *testing.T) {
	tool := NewTool("roll-d20 die", "Rolls a d20.", map[string]any{"type": "object"}, nil, VariantMCP)
	if tool.FnName != "rollD20Die" {
		t.Errorf("got FnName %q, want rollD20Die", tool.FnName)
	}
}

func TestToolFnSignatureIncludesDescription(t *testing.T) {
	tool := NewTool("ping", "Pings a host.", map[string]any{"type": "object"}, nil, VariantMCP)
	sig := tool.FnSignature()
	if !strings.Contains(sig, "Pings a host.") {
		t.Errorf("signature missing description: %q", sig)
	}
	if !strings.Contains(sig, "async function ping(") {
		t.Errorf("signature missing function declaration: %q", sig)
	}
}

func TestToolsetNamespaceDispatchesByVariant(t *testing.T) {
	mcpTool := NewTool("search", "", map[string]any{"type": "object"}, nil, VariantMCP)
	localTool := NewTool("localEcho", "", map[string]any{"type": "object"}, nil, VariantLocalHost)
	ts, err := NewToolset("web", "Web tools", []Tool{mcpTool, localTool})
	if err != nil {
		t.Fatalf("NewToolset: %v", err)
	}

	ns := ts.Namespace()
	if !strings.Contains(ns, `callMCPTool("web", "search", input)`) {
		t.Errorf("expected MCP dispatch in %q", ns)
	}
	if !strings.Contains(ns, `callLocalTool("web", "localEcho", input)`) {
		t.Errorf("expected local dispatch in %q", ns)
	}
}

func TestNewToolsetRejectsFnNameCollision(t *testing.T) {
	a := NewTool("get-pods", "", map[string]any{"type": "object"}, nil, VariantMCP)
	b := NewTool("get_pods", "", map[string]any{"type": "object"}, nil, VariantMCP)
	if a.FnName != b.FnName {
		t.Fatalf("test setup: expected both names to sanitize identically, got %q and %q", a.FnName, b.FnName)
	}

	if _, err := NewToolset("kubernetes", "", []Tool{a, b}); err == nil {
		t.Errorf("expected NewToolset to reject colliding fn_name %q", a.FnName)
	}
}

func TestDetailsForFindsRegisteredTool(t *testing.T) {
	tool := NewTool("echo", "Echoes input.", map[string]any{"type": "object"}, nil, VariantLocalJS)
	ts, err := NewToolset("util", "", []Tool{tool})
	if err != nil {
		t.Fatalf("NewToolset: %v", err)
	}

	details, ok := DetailsFor(ts, "echo")
	if !ok {
		t.Fatalf("expected echo to be found")
	}
	if details.Namespace != "util" || details.Name != "echo" {
		t.Errorf("got %+v", details)
	}

	if _, ok := DetailsFor(ts, "missing"); ok {
		t.Errorf("expected missing tool to report ok=false")
	}
}
