// Package typegen renders JSON Schema documents as TypeScript type
// declarations.
//
// A schema is rendered as an inline type expression wherever it is first
// referenced; a schema that participates in a cycle (through "$ref" or by
// containing itself) is hoisted into a named top-level declaration instead
// so the generated TypeScript never needs to express an anonymous recursive
// type. A non-recursive schema used from more than one place is rendered
// inline at each use.
package typegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Result is the outcome of rendering a single schema.
type Result struct {
	// TypeExpression is the TypeScript type to use at the call site: either
	// an inline expression ("{ a: string }") or the name of one of
	// Declarations ("Widget").
	TypeExpression string

	// Declarations holds every named type alias produced while rendering,
	// in a stable, dependency-respecting order (a type never references a
	// declaration that appears after it). Empty when the schema needed no
	// named types.
	Declarations []Declaration
}

// Declaration is a single named TypeScript type alias.
type Declaration struct {
	Name string
	Body string
}

// Generate renders schema (a decoded JSON Schema document, as produced by
// encoding/json into map[string]any/[]any/string/float64/bool/nil) into a
// Result. hint is used to derive a readable name for the root type if the
// schema needs to be hoisted (e.g. because it is self-referential); pass the
// tool name or field name the schema came from.
func Generate(schema any, hint string) Result {
	g := &generator{
		root:    schema,
		named:   make(map[string]string),
		seen:    make(map[string]bool),
		visited: make(map[string]bool),
	}
	expr := g.render(schema, hint)
	return Result{TypeExpression: expr, Declarations: g.declarations}
}

// generator holds the state accumulated while walking a single schema tree.
// Cycle detection keys on the schema's canonicalKey (or, for a "$ref", on
// the ref pointer itself): if the same subschema is
// entered twice on the current path, the second entry must reference a
// named declaration rather than recurse forever.
type generator struct {
	root         any // the document Generate was called with, for resolving "$ref" pointers against
	named        map[string]string // cycle-detection key -> declared name
	declarations []Declaration
	seen         map[string]bool // cycle-detection key -> true once a declaration exists
	visited      map[string]bool // cycle-detection key -> true while on the current recursion path
	anon         int
}

func (g *generator) render(schema any, hint string) string {
	m, ok := asObject(schema)
	if !ok {
		return g.renderLeaf(schema)
	}

	if ref, ok := m["$ref"].(string); ok {
		return g.renderRef(ref, hint)
	}

	key := "obj:" + canonicalKey(m)
	if name, ok := g.named[key]; ok {
		return name
	}

	if g.visited[key] {
		// Cycle: this subschema is already being rendered further up the
		// call stack. Reserve a name for it now; the in-progress render
		// will register the declaration once it completes.
		name := g.nameFor(hint)
		g.named[key] = name
		return name
	}
	g.visited[key] = true
	defer delete(g.visited, key)

	body := g.renderBody(m, hint)

	// If rendering body caused a cycle back to this schema, a name was
	// already reserved in g.named — promote the body into a declaration
	// under that name instead of returning it inline.
	if name, ok := g.named[key]; ok {
		g.addDeclaration(name, body)
		return name
	}

	return body
}

// renderRef resolves a JSON Pointer "$ref" (e.g. "#/$defs/Node") against the
// root document and renders the target schema, reserving and hoisting a
// named declaration the same way render does when the ref participates in a
// cycle (directly, or through a chain of other refs/subschemas).
func (g *generator) renderRef(ref, hint string) string {
	key := "ref:" + ref
	if name, ok := g.named[key]; ok {
		return name
	}
	if g.visited[key] {
		name := g.nameFor(hint)
		g.named[key] = name
		return name
	}
	g.visited[key] = true
	defer delete(g.visited, key)

	target, ok := g.resolveRef(ref)
	if !ok {
		return "unknown"
	}
	body := g.render(target, hint)

	if name, ok := g.named[key]; ok {
		g.addDeclaration(name, body)
		return name
	}
	return body
}

// resolveRef resolves a local JSON Pointer ref ("#", "#/$defs/Node", ...)
// against g.root. Only same-document refs are supported — there is no
// external schema to fetch.
func (g *generator) resolveRef(ref string) (any, bool) {
	if !strings.HasPrefix(ref, "#") {
		return nil, false
	}
	pointer := strings.TrimPrefix(strings.TrimPrefix(ref, "#"), "/")
	if pointer == "" {
		return g.root, true
	}

	cur := g.root
	for _, tok := range strings.Split(pointer, "/") {
		tok = strings.ReplaceAll(tok, "~1", "/")
		tok = strings.ReplaceAll(tok, "~0", "~")

		switch node := cur.(type) {
		case map[string]any:
			v, exists := node[tok]
			if !exists {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func (g *generator) renderBody(m map[string]any, hint string) string {
	if refs, ok := unionMembers(m); ok {
		parts := make([]string, 0, len(refs))
		for i, member := range refs {
			parts = append(parts, g.render(member, fmt.Sprintf("%sVariant%d", hint, i+1)))
		}
		return strings.Join(parts, " | ")
	}

	typ, _ := m["type"].(string)
	switch typ {
	case "object", "":
		if _, hasProps := m["properties"]; hasProps || typ == "object" {
			return g.renderObject(m, hint)
		}
		return "unknown"
	case "array":
		items := m["items"]
		elem := g.render(items, hint+"Item")
		return elem + "[]"
	case "string":
		if enum, ok := m["enum"].([]any); ok {
			return renderEnum(enum)
		}
		return "string"
	case "integer", "number":
		return "number"
	case "boolean":
		return "boolean"
	case "null":
		return "null"
	default:
		return "unknown"
	}
}

func (g *generator) renderObject(m map[string]any, hint string) string {
	props, _ := m["properties"].(map[string]any)
	required := make(map[string]bool)
	if reqList, ok := m["required"].([]any); ok {
		for _, r := range reqList {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("{")
	for i, name := range names {
		if i > 0 {
			b.WriteString(";")
		}
		fieldType := g.render(props[name], hint+fieldHint(name))
		optional := ""
		if !required[name] {
			optional = "?"
		}
		fmt.Fprintf(&b, " %s%s: %s", identifier(name), optional, fieldType)
	}

	if ap, ok := m["additionalProperties"]; ok {
		if apBool, isBool := ap.(bool); !isBool || apBool {
			var valueType string
			if isBool {
				valueType = "unknown"
			} else {
				valueType = g.render(ap, hint+"Value")
			}
			if len(names) > 0 {
				b.WriteString(";")
			}
			fmt.Fprintf(&b, " [key: string]: %s", valueType)
		}
	}

	b.WriteString(" }")
	return b.String()
}

func (g *generator) renderLeaf(schema any) string {
	switch schema.(type) {
	case nil:
		return "unknown"
	default:
		return "unknown"
	}
}

// unionMembers returns the member list of an anyOf/oneOf schema, including
// the implicit [T, null] union synthesised for a nullable field, if m
// describes a union; ok is false otherwise.
func unionMembers(m map[string]any) (members []any, ok bool) {
	for _, key := range []string{"anyOf", "oneOf"} {
		if list, isList := m[key].([]any); isList && len(list) > 0 {
			return list, true
		}
	}
	if nullable, _ := m["nullable"].(bool); nullable {
		without := make(map[string]any, len(m))
		for k, v := range m {
			if k != "nullable" {
				without[k] = v
			}
		}
		return []any{without, map[string]any{"type": "null"}}, true
	}
	return nil, false
}

func renderEnum(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			parts = append(parts, fmt.Sprintf("%q", s))
		}
	}
	if len(parts) == 0 {
		return "string"
	}
	return strings.Join(parts, " | ")
}

func (g *generator) nameFor(hint string) string {
	name := pascalCase(hint)
	if name == "" {
		name = "Anonymous"
	}
	base := name
	for i := 1; g.nameTaken(name); i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	return name
}

func (g *generator) nameTaken(name string) bool {
	for _, n := range g.named {
		if n == name {
			return true
		}
	}
	for _, d := range g.declarations {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (g *generator) addDeclaration(name, body string) {
	g.declarations = append(g.declarations, Declaration{Name: name, Body: body})
}

func asObject(schema any) (map[string]any, bool) {
	m, ok := schema.(map[string]any)
	return m, ok
}

// canonicalKey produces a stable string key for a subschema so it is
// recognised as the same node during cycle detection. It ignores map key
// order and compares scalar values by value; nested maps and slices are
// keyed by identity, so a schema that contains itself yields a finite key.
func canonicalKey(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]any, []any:
			fmt.Fprintf(&b, "%s=%p;", k, v)
		default:
			fmt.Fprintf(&b, "%s=%v;", k, v)
		}
	}
	return b.String()
}

func fieldHint(name string) string {
	return pascalCase(name)
}

func identifier(name string) string {
	if isValidIdentifier(name) {
		return name
	}
	return fmt.Sprintf("%q", name)
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func pascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
