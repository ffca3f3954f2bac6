package secrets

import (
	"os"
	"testing"
)

func TestResolveLiteral(t *testing.T) {
	v, err := Resolve(Ref{Literal: "hunter2"})
	if err != nil || v != "hunter2" {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("PCTXGO_TEST_SECRET", "from-env")
	v, err := Resolve(Ref{Env: "PCTXGO_TEST_SECRET"})
	if err != nil || v != "from-env" {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestResolveEnvMissing(t *testing.T) {
	_ = os.Unsetenv("PCTXGO_TEST_SECRET_MISSING")
	_, err := Resolve(Ref{Env: "PCTXGO_TEST_SECRET_MISSING"})
	if err == nil {
		t.Fatalf("expected error for unset environment variable")
	}
}

func TestResolveCommand(t *testing.T) {
	v, err := Resolve(Ref{Command: "echo from-command"})
	if err != nil || v != "from-command" {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestResolveEmptyRef(t *testing.T) {
	if _, err := Resolve(Ref{}); err == nil {
		t.Fatalf("expected error for empty reference")
	}
}
