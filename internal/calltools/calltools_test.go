package calltools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func echoCallback(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	return input, nil
}

func TestRegisterAndInvoke(t *testing.T) {
	r := New()
	meta := Metadata{Namespace: "util", Name: "echo"}
	if err := r.Register(meta, echoCallback); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !r.Has("util", "echo") {
		t.Fatalf("expected Has to report true")
	}

	out, err := r.Invoke(context.Background(), "util", "echo", json.RawMessage(`{"x":1}`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(out) != `{"x":1}` {
		t.Errorf("got %s", out)
	}
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := New()
	meta := Metadata{Namespace: "util", Name: "echo"}
	if err := r.Register(meta, echoCallback); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(meta, echoCallback); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	r := New()
	if err := r.Register(Metadata{Namespace: "", Name: "x"}, echoCallback); err == nil {
		t.Fatalf("expected error for empty namespace")
	}
	if err := r.Register(Metadata{Namespace: "x", Name: ""}, echoCallback); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := r.Register(Metadata{Namespace: "x", Name: "y"}, nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}

func TestInvokeUnknownReturnsError(t *testing.T) {
	r := New()
	if _, err := r.Invoke(context.Background(), "a", "b", nil); err == nil {
		t.Fatalf("expected error for unregistered tool")
	}
}

func TestInvokeWrapsCallbackError(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	_ = r.Register(Metadata{Namespace: "a", Name: "b"}, func(context.Context, json.RawMessage) (json.RawMessage, error) {
		return nil, boom
	})
	_, err := r.Invoke(context.Background(), "a", "b", nil)
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
}

func TestRemoveAndList(t *testing.T) {
	r := New()
	_ = r.Register(Metadata{Namespace: "a", Name: "b"}, echoCallback)
	_ = r.Register(Metadata{Namespace: "a", Name: "c"}, echoCallback)

	if len(r.List()) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(r.List()))
	}

	r.Remove("a", "b")
	if r.Has("a", "b") {
		t.Errorf("expected b removed")
	}
	if len(r.List()) != 1 {
		t.Fatalf("expected 1 entry after remove, got %d", len(r.List()))
	}
}
