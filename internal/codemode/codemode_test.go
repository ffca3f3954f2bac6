package codemode

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lambdamechanic/pctxgo/internal/calltools"
	"github.com/lambdamechanic/pctxgo/internal/codegen"
	"github.com/lambdamechanic/pctxgo/internal/sandbox"
)

func echoCallback(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	return input, nil
}

func TestListFunctionsIncludesRegisteredCallback(t *testing.T) {
	cm := New()
	err := cm.RegisterCallback(calltools.Metadata{
		Namespace:   "util",
		Name:        "echo",
		Description: "Echoes input.",
	}, echoCallback)
	if err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}

	listed, err := cm.ListFunctions(context.Background())
	if err != nil {
		t.Fatalf("ListFunctions: %v", err)
	}
	if len(listed) != 1 || listed[0].Namespace != "util" || listed[0].Name != "echo" {
		t.Fatalf("got %+v", listed)
	}
}

func TestGetFunctionDetailsUnknownNamespace(t *testing.T) {
	cm := New()
	_, err := cm.GetFunctionDetails(context.Background(), []codegen.FunctionID{{Namespace: "nope", Name: "x"}})
	if err == nil {
		t.Fatalf("expected error for unknown namespace")
	}
}

func TestCloneSharesRegistries(t *testing.T) {
	cm := New()
	clone := cm.Clone()

	if err := cm.RegisterCallback(calltools.Metadata{Namespace: "a", Name: "b"}, echoCallback); err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}

	listed, err := clone.ListFunctions(context.Background())
	if err != nil {
		t.Fatalf("ListFunctions on clone: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected clone to observe callback registered on the original, got %+v", listed)
	}
}

func TestCallLocalJSToolAndCallLocalToolBothDelegateToCallbacks(t *testing.T) {
	cm := New()
	if err := cm.RegisterCallback(calltools.Metadata{Namespace: "ns", Name: "fn"}, echoCallback); err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}

	out1, err := cm.CallLocalJSTool(context.Background(), "ns", "fn", json.RawMessage(`{"a":1}`))
	if err != nil {
		t.Fatalf("CallLocalJSTool: %v", err)
	}
	out2, err := cm.CallLocalTool(context.Background(), "ns", "fn", json.RawMessage(`{"a":1}`))
	if err != nil {
		t.Fatalf("CallLocalTool: %v", err)
	}
	if string(out1) != string(out2) {
		t.Errorf("expected both dispatch paths to produce identical output, got %s vs %s", out1, out2)
	}
}

func TestFetchRejectsUnregisteredHost(t *testing.T) {
	cm := New()
	_, err := cm.Fetch(context.Background(), "https://evil.example.com/", sandbox.FetchInit{})
	if err == nil {
		t.Fatalf("expected fetch to an unregistered host to fail")
	}
}
