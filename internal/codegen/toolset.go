package codegen

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Toolset groups every Tool exposed under a single namespace — typically one
// MCP server, or one block of callable tools registered together.
type Toolset struct {
	NamespaceName string
	ModuleName    string
	Description   string
	Tools         []Tool
}

// NewToolset builds a Toolset, deriving ModuleName (the Pascal-case
// namespace identifier used in generated type names) from namespaceName. It
// rejects two tools whose sanitized FnName collides within the namespace:
// Namespace's generated object can only hold one property per name, so a
// silent collision would drop one tool's implementation without warning.
func NewToolset(namespaceName, description string, tools []Tool) (Toolset, error) {
	seen := make(map[string]string, len(tools))
	for _, t := range tools {
		if other, ok := seen[t.FnName]; ok {
			return Toolset{}, fmt.Errorf("codegen: tools %q and %q in namespace %q both sanitize to fn_name %q", other, t.Name, namespaceName, t.FnName)
		}
		seen[t.FnName] = t.Name
	}

	return Toolset{
		NamespaceName: namespaceName,
		ModuleName:    pascalCaseNamespace(namespaceName),
		Description:   description,
		Tools:         tools,
	}, nil
}

// Listed renders the ListedFunction entries this toolset contributes,
// sorted by function name for deterministic output.
func (ts Toolset) Listed() []ListedFunction {
	out := make([]ListedFunction, 0, len(ts.Tools))
	for _, t := range ts.Tools {
		out = append(out, ListedFunction{
			Namespace:   ts.NamespaceName,
			Name:        t.FnName,
			Description: t.Description,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NamespaceInterface renders the TypeScript "declare namespace" block
// listing every tool's signature, for inclusion in the script's ambient
// type context.
func (ts Toolset) NamespaceInterface() string {
	var b strings.Builder
	fmt.Fprintf(&b, "declare namespace %s {\n", ts.ModuleName)
	for _, d := range ts.allDeclarations() {
		fmt.Fprintf(&b, "  type %s = %s;\n", d.Name, d.Body)
	}
	for _, t := range sortedByFnName(ts.Tools) {
		b.WriteString(t.FnSignature())
	}
	b.WriteString("}\n")
	return b.String()
}

// Namespace renders the runnable JavaScript module object exposing every
// tool's implementation as a property of a const named ts.ModuleName.
func (ts Toolset) Namespace() string {
	var b strings.Builder
	fmt.Fprintf(&b, "const %s = (function() {\n", ts.ModuleName)
	for _, t := range sortedByFnName(ts.Tools) {
		b.WriteString("  ")
		b.WriteString(t.FnImpl(ts.NamespaceName))
		b.WriteString("\n")
	}
	b.WriteString("  return {")
	for i, t := range sortedByFnName(ts.Tools) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s", t.FnName)
	}
	b.WriteString("};\n})();\n")
	return b.String()
}

// WrapWithNamespace combines NamespaceInterface and Namespace into the full
// declaration block injected ahead of user code.
func (ts Toolset) WrapWithNamespace() string {
	return ts.NamespaceInterface() + "\n" + ts.Namespace()
}

func (ts Toolset) allDeclarations() []struct {
	Name string
	Body string
} {
	seen := make(map[string]bool)
	var out []struct {
		Name string
		Body string
	}
	for _, t := range ts.Tools {
		for _, d := range t.Types {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			out = append(out, struct {
				Name string
				Body string
			}{d.Name, d.Body})
		}
	}
	return out
}

func sortedByFnName(tools []Tool) []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)
	sort.Slice(out, func(i, j int) bool { return out[i].FnName < out[j].FnName })
	return out
}

func pascalCaseNamespace(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	if b.Len() == 0 {
		return "Namespace"
	}
	return b.String()
}
