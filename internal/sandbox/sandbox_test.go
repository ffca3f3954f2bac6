package sandbox

import (
	"strings"
	"testing"
)

func TestTranspileStripsInterface(t *testing.T) {
	src := `interface Foo {
  a: string;
  b: number;
}
async function run() { return 1; }`
	out, err := Transpile(src)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	if strings.Contains(out, "interface") {
		t.Errorf("expected interface stripped, got %q", out)
	}
	if !strings.Contains(out, "async function run()") {
		t.Errorf("expected run function preserved, got %q", out)
	}
}

func TestTranspileStripsTypeAlias(t *testing.T) {
	src := "type Foo = { a: string };\nasync function run() { return 1; }"
	out, err := Transpile(src)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	if strings.Contains(out, "type Foo") {
		t.Errorf("expected type alias stripped, got %q", out)
	}
}

func TestTranspileStripsDeclareNamespace(t *testing.T) {
	src := `declare namespace Weather {
  async function forecast(input: ForecastInput): Promise<ForecastOutput>;
}
async function run() { return 1; }`
	out, err := Transpile(src)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	if strings.Contains(out, "declare namespace") {
		t.Errorf("expected declare namespace stripped, got %q", out)
	}
}

func TestTranspilePreservesStringContents(t *testing.T) {
	src := `async function run() { return "interface-like text: a: string"; }`
	out, err := Transpile(src)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	if !strings.Contains(out, `"interface-like text: a: string"`) {
		t.Errorf("expected string literal preserved verbatim, got %q", out)
	}
}

func TestTranspileStripsParamAndReturnAnnotations(t *testing.T) {
	src := "async function run(input: Widget): Promise<Result> { return input; }"
	out, err := Transpile(src)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	if strings.Contains(out, ": Widget") || strings.Contains(out, ": Promise") {
		t.Errorf("expected annotations stripped, got %q", out)
	}
	if !strings.Contains(out, "function run(input)") {
		t.Errorf("expected clean parameter list, got %q", out)
	}
}

func TestAllowListDefaultsPorts(t *testing.T) {
	al := NewAllowList([]string{"https://tools.example.com/mcp", "http://internal:9000/mcp"})

	if !al.Allowed("https://tools.example.com:443/anything") {
		t.Errorf("expected https default port 443 to be allowed")
	}
	if !al.Allowed("http://internal:9000/other") {
		t.Errorf("expected explicit port to be allowed")
	}
	if al.Allowed("https://evil.example.com/") {
		t.Errorf("expected unregistered host to be denied")
	}
}
