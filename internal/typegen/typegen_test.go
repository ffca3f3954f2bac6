package typegen

import (
	"encoding/json"
	"strings"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	return v
}

func TestGenerateScalarTypes(t *testing.T) {
	cases := map[string]string{
		`{"type":"string"}`:  "string",
		`{"type":"number"}`:  "number",
		`{"type":"integer"}`: "number",
		`{"type":"boolean"}`: "boolean",
	}
	for schema, want := range cases {
		got := Generate(decode(t, schema), "Root")
		if got.TypeExpression != want {
			t.Errorf("Generate(%s) = %q, want %q", schema, got.TypeExpression, want)
		}
	}
}

func TestGenerateObjectWithRequiredAndOptional(t *testing.T) {
	schema := decode(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		},
		"required": ["name"]
	}`)
	got := Generate(schema, "Person")
	if !strings.Contains(got.TypeExpression, "name: string") {
		t.Errorf("expected required name field, got %q", got.TypeExpression)
	}
	if !strings.Contains(got.TypeExpression, "age?: number") {
		t.Errorf("expected optional age field, got %q", got.TypeExpression)
	}
}

func TestGenerateArray(t *testing.T) {
	schema := decode(t, `{"type":"array","items":{"type":"string"}}`)
	got := Generate(schema, "Tags")
	if got.TypeExpression != "string[]" {
		t.Errorf("got %q, want string[]", got.TypeExpression)
	}
}

func TestGenerateAdditionalProperties(t *testing.T) {
	schema := decode(t, `{"type":"object","additionalProperties":{"type":"number"}}`)
	got := Generate(schema, "Scores")
	if !strings.Contains(got.TypeExpression, "[key: string]: number") {
		t.Errorf("got %q, want index signature", got.TypeExpression)
	}
}

func TestGenerateUnion(t *testing.T) {
	schema := decode(t, `{"anyOf":[{"type":"string"},{"type":"integer"}]}`)
	got := Generate(schema, "StringOrNumber")
	if got.TypeExpression != "string | number" {
		t.Errorf("got %q, want union", got.TypeExpression)
	}
}

func TestGenerateNullableSynthesisesUnion(t *testing.T) {
	schema := decode(t, `{"type":"string","nullable":true}`)
	got := Generate(schema, "MaybeString")
	if got.TypeExpression != "string | null" {
		t.Errorf("got %q, want string | null", got.TypeExpression)
	}
}

func TestGenerateEnum(t *testing.T) {
	schema := decode(t, `{"type":"string","enum":["a","b"]}`)
	got := Generate(schema, "Choice")
	if got.TypeExpression != `"a" | "b"` {
		t.Errorf("got %q", got.TypeExpression)
	}
}

func TestGenerateCycleHoistsNamedDeclaration(t *testing.T) {
	// A self-referential "next" property must not recurse forever; it
	// should hoist a named declaration instead.
	nodeSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{"type": "string"},
			"next":  nil, // placeholder, set below to create the cycle
		},
		"required": []any{"value"},
	}
	nodeSchema["properties"].(map[string]any)["next"] = nodeSchema

	got := Generate(nodeSchema, "Node")
	if len(got.Declarations) == 0 {
		t.Fatalf("expected a hoisted declaration for the cyclic schema")
	}
	found := false
	for _, d := range got.Declarations {
		if strings.Contains(d.Body, d.Name) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the cyclic declaration to reference itself by name, got %+v", got.Declarations)
	}
}

func TestGenerateResolvesRef(t *testing.T) {
	schema := decode(t, `{
		"type": "object",
		"properties": {
			"item": {"$ref": "#/$defs/Item"}
		},
		"required": ["item"],
		"$defs": {
			"Item": {"type": "object", "properties": {"id": {"type": "string"}}, "required": ["id"]}
		}
	}`)
	got := Generate(schema, "Container")
	if !strings.Contains(got.TypeExpression, "item: { id: string }") {
		t.Errorf("expected $ref to resolve to the $defs target inline, got %q", got.TypeExpression)
	}
}

func TestGenerateRefCycleHoistsNamedDeclaration(t *testing.T) {
	schema := decode(t, `{
		"$ref": "#/$defs/Node",
		"$defs": {
			"Node": {
				"type": "object",
				"properties": {
					"value": {"type": "string"},
					"next": {"$ref": "#/$defs/Node"}
				},
				"required": ["value"]
			}
		}
	}`)
	got := Generate(schema, "Node")
	if len(got.Declarations) == 0 {
		t.Fatalf("expected a hoisted declaration for the $ref cycle")
	}
	found := false
	for _, d := range got.Declarations {
		if strings.Contains(d.Body, d.Name) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the cyclic $ref declaration to reference itself by name, got %+v", got.Declarations)
	}
}
