// Package codemode ties the MCP registry, the callable-tool registry, and
// the script runtime together into the single object a session hands its
// REST and WebSocket surfaces: ask it what functions exist, ask it for the
// generated types of a subset of them, or hand it a script to run.
package codemode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lambdamechanic/pctxgo/internal/calltools"
	"github.com/lambdamechanic/pctxgo/internal/codegen"
	"github.com/lambdamechanic/pctxgo/internal/mcpclient"
	"github.com/lambdamechanic/pctxgo/internal/mcpregistry"
	"github.com/lambdamechanic/pctxgo/internal/sandbox"
)

// CodeMode aggregates one MCP registry and one callable-tool registry and
// exposes the operations a code-mode session needs. The zero value is not
// usable; construct with New.
type CodeMode struct {
	mcp       *mcpregistry.Registry
	callbacks *calltools.Registry

	mu          sync.Mutex
	cachedSets  []codegen.Toolset
	cacheValid  bool
}

// New returns an empty CodeMode ready to have servers and callbacks
// registered on it.
func New() *CodeMode {
	return &CodeMode{
		mcp:       mcpregistry.New(),
		callbacks: calltools.New(),
	}
}

// Clone returns a shallow copy of cm: the new value shares the same
// underlying MCP and callback registries (both are already reference types
// guarded by their own locks), matching the spec's "clones share registries,
// not deep copies" requirement. Only the toolset cache is reset.
func (cm *CodeMode) Clone() *CodeMode {
	return &CodeMode{mcp: cm.mcp, callbacks: cm.callbacks}
}

// AddServer registers an MCP server with cm. Subsequent ListFunctions /
// GetFunctionDetails / Execute calls will include its tools.
func (cm *CodeMode) AddServer(cfg mcpclient.ServerConfig) error {
	if err := cm.mcp.Add(cfg); err != nil {
		return fmt.Errorf("codemode: %w", err)
	}
	cm.invalidate()
	return nil
}

// RegisterCallback registers a callback-backed tool with cm.
func (cm *CodeMode) RegisterCallback(metadata calltools.Metadata, callback calltools.CallbackFunc) error {
	if err := cm.callbacks.Register(metadata, callback); err != nil {
		return fmt.Errorf("codemode: %w", err)
	}
	cm.invalidate()
	return nil
}

func (cm *CodeMode) invalidate() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cacheValid = false
}

// toolsets rebuilds (or returns the cached) list of toolsets: one per MCP
// server plus one for every callback namespace. Rebuilding dials every
// registered MCP server to refresh its tool list, so callers on a hot path
// should rely on the cache rather than forcing a rebuild on every call.
func (cm *CodeMode) toolsets(ctx context.Context) ([]codegen.Toolset, error) {
	cm.mu.Lock()
	if cm.cacheValid {
		defer cm.mu.Unlock()
		return cm.cachedSets, nil
	}
	cm.mu.Unlock()

	var sets []codegen.Toolset

	for _, serverName := range cm.mcp.Names() {
		defs, err := mcpregistry.ListTools(ctx, cm.mcp, serverName)
		if err != nil {
			return nil, fmt.Errorf("codemode: listing tools for server %q: %w", serverName, err)
		}
		tools := make([]codegen.Tool, 0, len(defs))
		for _, d := range defs {
			tools = append(tools, codegen.NewTool(d.Name, d.Description, d.InputSchema, d.OutputSchema, codegen.VariantMCP))
		}
		ts, err := codegen.NewToolset(serverName, "MCP server "+serverName, tools)
		if err != nil {
			return nil, fmt.Errorf("codemode: %w", err)
		}
		sets = append(sets, ts)
	}

	byNamespace := make(map[string][]codegen.Tool)
	var order []string
	for _, m := range cm.callbacks.List() {
		if _, ok := byNamespace[m.Namespace]; !ok {
			order = append(order, m.Namespace)
		}
		byNamespace[m.Namespace] = append(byNamespace[m.Namespace], codegen.NewTool(m.Name, m.Description, m.InputSchema, m.OutputSchema, codegen.VariantLocalHost))
	}
	for _, ns := range order {
		ts, err := codegen.NewToolset(ns, "", byNamespace[ns])
		if err != nil {
			return nil, fmt.Errorf("codemode: %w", err)
		}
		sets = append(sets, ts)
	}

	cm.mu.Lock()
	cm.cachedSets = sets
	cm.cacheValid = true
	cm.mu.Unlock()

	return sets, nil
}

// ListFunctions returns a flat, namespace-qualified listing of every tool
// currently available to this CodeMode.
func (cm *CodeMode) ListFunctions(ctx context.Context) ([]codegen.ListedFunction, error) {
	sets, err := cm.toolsets(ctx)
	if err != nil {
		return nil, err
	}
	var out []codegen.ListedFunction
	for _, ts := range sets {
		out = append(out, ts.Listed()...)
	}
	return out, nil
}

// GetFunctionDetails returns the full signature and type declarations for
// each requested function id. It returns an error naming the first id that
// cannot be found.
func (cm *CodeMode) GetFunctionDetails(ctx context.Context, ids []codegen.FunctionID) ([]codegen.FunctionDetails, error) {
	sets, err := cm.toolsets(ctx)
	if err != nil {
		return nil, err
	}
	byNamespace := make(map[string]codegen.Toolset, len(sets))
	for _, ts := range sets {
		byNamespace[ts.NamespaceName] = ts
	}

	out := make([]codegen.FunctionDetails, 0, len(ids))
	for _, id := range ids {
		ts, ok := byNamespace[id.Namespace]
		if !ok {
			return nil, fmt.Errorf("codemode: unknown namespace %q", id.Namespace)
		}
		details, ok := codegen.DetailsFor(ts, id.Name)
		if !ok {
			return nil, fmt.Errorf("codemode: unknown function %q", id.String())
		}
		out = append(out, details)
	}
	return out, nil
}

// preambleFor renders every toolset's namespace wrapper, to be prepended to
// the user's script before execution.
func (cm *CodeMode) preambleFor(sets []codegen.Toolset) string {
	var b strings.Builder
	for _, ts := range sets {
		b.WriteString(ts.WrapWithNamespace())
		b.WriteString("\n")
	}
	return b.String()
}

// Execute runs code (an "async function run() { ... }" script body, plus
// whatever helper declarations it needs) against this CodeMode's current
// tool surface.
func (cm *CodeMode) Execute(ctx context.Context, code string) (sandbox.ExecutionResult, error) {
	sets, err := cm.toolsets(ctx)
	if err != nil {
		return sandbox.ExecutionResult{}, err
	}
	full := cm.preambleFor(sets) + "\n" + code
	result := sandbox.Run(ctx, full, cm, sandbox.DefaultTimeout)
	return result, nil
}

// CallMCPTool implements sandbox.Host.
func (cm *CodeMode) CallMCPTool(ctx context.Context, namespace, toolName string, args json.RawMessage) (json.RawMessage, error) {
	argsMap, err := mcpregistry.MarshalArgs(args)
	if err != nil {
		return nil, err
	}
	result, err := mcpregistry.CallTool(ctx, cm.mcp, namespace, toolName, argsMap)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, fmt.Errorf("codemode: tool %q.%q reported an error: %s", namespace, toolName, result.Content)
	}
	return result.Content, nil
}

// CallLocalJSTool implements sandbox.Host by delegating to the callback
// registry, the same way CallLocalTool does: the distinction between
// "local JS" and "local host" tools is a codegen-time dispatch label only
// (see internal/codegen's Variant), not a separate runtime path.
func (cm *CodeMode) CallLocalJSTool(ctx context.Context, namespace, toolName string, args json.RawMessage) (json.RawMessage, error) {
	return cm.callbacks.Invoke(ctx, namespace, toolName, args)
}

// CallLocalTool implements sandbox.Host.
func (cm *CodeMode) CallLocalTool(ctx context.Context, namespace, toolName string, args json.RawMessage) (json.RawMessage, error) {
	return cm.callbacks.Invoke(ctx, namespace, toolName, args)
}

// Fetch implements sandbox.Host, gating every request through an allow-list
// built from the URLs of currently registered streamable-HTTP MCP servers.
func (cm *CodeMode) Fetch(ctx context.Context, url string, init sandbox.FetchInit) (sandbox.FetchResponse, error) {
	var urls []string
	for _, name := range cm.mcp.Names() {
		if cfg, ok := cm.mcp.Get(name); ok && cfg.URL != "" {
			urls = append(urls, cfg.URL)
		}
	}
	allow := sandbox.NewAllowList(urls)
	if err := allow.CheckFetch(url); err != nil {
		return sandbox.FetchResponse{}, err
	}

	method := init.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(init.Body))
	if err != nil {
		return sandbox.FetchResponse{}, fmt.Errorf("codemode: fetch: %w", err)
	}
	for k, v := range init.Headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return sandbox.FetchResponse{}, fmt.Errorf("codemode: fetch: %w", err)
	}
	defer resp.Body.Close()

	var bodyBuf strings.Builder
	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			bodyBuf.Write(buf[:n])
		}
		if rerr != nil {
			break
		}
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return sandbox.FetchResponse{Status: resp.StatusCode, Headers: headers, Body: bodyBuf.String()}, nil
}
