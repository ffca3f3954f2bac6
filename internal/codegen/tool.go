// Package codegen turns registered tool metadata into the TypeScript
// surface a code-mode script sees: one namespace interface per toolset, one
// async function per tool, backed by generated input/output types.
package codegen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lambdamechanic/pctxgo/internal/typegen"
)

// Variant distinguishes how a tool's implementation is ultimately invoked
// once the script calls its generated wrapper function.
type Variant int

const (
	// VariantMCP routes the call through the MCP registry to an upstream
	// MCP server.
	VariantMCP Variant = iota
	// VariantLocalJS routes the call through the callJsLocalTool op to the
	// callable-tool registry.
	VariantLocalJS
	// VariantLocalHost routes the call through the callLocalTool op to the
	// callable-tool registry, whose callback may run in process or
	// round-trip over the WebSocket bridge to the connected client.
	VariantLocalHost
)

// Tool describes a single callable function as it will appear inside a
// generated namespace: its wire name, its generated TypeScript signature,
// and the implementation variant that decides how calls are dispatched at
// runtime.
type Tool struct {
	Name           string
	Description    string
	InputSchema    any
	OutputSchema   any
	FnName         string
	InputSignature string // the TypeScript type expression accepted as input
	OutputSignature string // the TypeScript type expression returned
	Types          []typegen.Declaration
	Variant        Variant
}

// NewTool builds a Tool from raw metadata, generating its input/output
// TypeScript signatures and a camelCase function name. Distinct names can
// sanitize to the same function name ("get-pods" and "get_pods" both become
// "getPods"); NewToolset rejects such collisions.
func NewTool(name, description string, inputSchema, outputSchema any, variant Variant) Tool {
	fnName := sanitizeFnName(name)

	in := typegen.Generate(inputSchema, pascal(fnName)+"Input")
	var outSig string
	var outDecls []typegen.Declaration
	if outputSchema != nil {
		out := typegen.Generate(outputSchema, pascal(fnName)+"Output")
		outSig = out.TypeExpression
		outDecls = out.Declarations
	} else {
		outSig = "unknown"
	}

	types := make([]typegen.Declaration, 0, len(in.Declarations)+len(outDecls))
	types = append(types, in.Declarations...)
	types = append(types, outDecls...)

	return Tool{
		Name:            name,
		Description:     description,
		InputSchema:     inputSchema,
		OutputSchema:    outputSchema,
		FnName:          fnName,
		InputSignature:  in.TypeExpression,
		OutputSignature: outSig,
		Types:           types,
		Variant:         variant,
	}
}

// FnSignature renders the function's doc comment plus its TypeScript
// declaration, e.g.:
//
//	/** Rolls an n-sided die. */
//	async function rollDie(input: RollDieInput): Promise<RollDieOutput>;
func (t Tool) FnSignature() string {
	var b strings.Builder
	if t.Description != "" {
		fmt.Fprintf(&b, "  /** %s */\n", t.Description)
	}
	fmt.Fprintf(&b, "  async function %s(input: %s): Promise<%s>;\n",
		t.FnName, t.InputSignature, t.OutputSignature)
	return b.String()
}

// FnImpl renders the runnable JavaScript implementation of the wrapper
// function, dispatching to the op that corresponds to its Variant.
func (t Tool) FnImpl(namespaceName string) string {
	var call string
	switch t.Variant {
	case VariantMCP:
		call = fmt.Sprintf("callMCPTool(%q, %q, input)", namespaceName, t.Name)
	case VariantLocalJS:
		call = fmt.Sprintf("callJsLocalTool(%q, %q, input)", namespaceName, t.Name)
	case VariantLocalHost:
		call = fmt.Sprintf("callLocalTool(%q, %q, input)", namespaceName, t.Name)
	}
	return fmt.Sprintf("async function %s(input) { return await %s; }", t.FnName, call)
}

func sanitizeFnName(name string) string {
	var b strings.Builder
	upperNext := false
	first := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upperNext {
				b.WriteRune(unicode.ToUpper(r))
				upperNext = false
			} else if first {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(r)
			}
			first = false
		default:
			upperNext = true
		}
	}
	out := b.String()
	if out == "" {
		return "fn"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "fn" + out
	}
	return out
}

func pascal(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
