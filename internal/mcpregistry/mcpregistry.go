// Package mcpregistry tracks the set of MCP servers a code-mode session
// knows about and remembers, per server, why the most recent connection
// attempt failed (if it did) so repeated calls fail fast instead of
// re-dialing a server that is known to be unreachable.
package mcpregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lambdamechanic/pctxgo/internal/mcpclient"
)

// Registry holds named MCP server configurations and a failure memo keyed by
// server name. It does not hold live connections: every call dials fresh,
// calls once, and disconnects (see CallTool).
type Registry struct {
	mu      sync.RWMutex
	configs map[string]mcpclient.ServerConfig
	failed  map[string]string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		configs: make(map[string]mcpclient.ServerConfig),
		failed:  make(map[string]string),
	}
}

// Add registers cfg. It returns an error if a server with the same name is
// already registered.
func (r *Registry) Add(cfg mcpclient.ServerConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("mcpregistry: server config must have a non-empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.configs[cfg.Name]; exists {
		return fmt.Errorf("mcpregistry: server %q already registered", cfg.Name)
	}
	r.configs[cfg.Name] = cfg
	delete(r.failed, cfg.Name)
	return nil
}

// Get returns the configuration registered under name.
func (r *Registry) Get(name string) (mcpclient.ServerConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[name]
	return cfg, ok
}

// Has reports whether a server named name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[name]
	return ok
}

// Delete removes the named server and clears any failure memo for it.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, name)
	delete(r.failed, name)
}

// Clear removes every registered server.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = make(map[string]mcpclient.ServerConfig)
	r.failed = make(map[string]string)
}

// Names returns every registered server name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.configs))
	for name := range r.configs {
		out = append(out, name)
	}
	return out
}

// FailureReason returns the remembered failure message for name, if the most
// recent connection attempt to it failed.
func (r *Registry) FailureReason(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reason, ok := r.failed[name]
	return reason, ok
}

func (r *Registry) markFailed(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[name] = err.Error()
}

func (r *Registry) clearFailure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failed, name)
}

// CallTool connects to serverName, invokes toolName with args, and
// disconnects, all in one call. If serverName has a remembered failure from
// a previous attempt, CallTool returns that reason immediately without
// dialing again.
func CallTool(ctx context.Context, r *Registry, serverName, toolName string, args map[string]any) (*mcpclient.ToolResult, error) {
	if reason, failed := r.FailureReason(serverName); failed {
		return nil, fmt.Errorf("mcpregistry: server %q is known unreachable: %s", serverName, reason)
	}

	cfg, ok := r.Get(serverName)
	if !ok {
		return nil, fmt.Errorf("mcpregistry: server %q is not registered", serverName)
	}

	sess, err := mcpclient.Connect(ctx, cfg)
	if err != nil {
		r.markFailed(serverName, err)
		return nil, err
	}
	defer sess.Close()

	r.clearFailure(serverName)

	result, err := sess.CallTool(ctx, toolName, args)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListTools connects to serverName, lists its tools, and disconnects.
func ListTools(ctx context.Context, r *Registry, serverName string) ([]mcpclient.ToolDefinition, error) {
	if reason, failed := r.FailureReason(serverName); failed {
		return nil, fmt.Errorf("mcpregistry: server %q is known unreachable: %s", serverName, reason)
	}

	cfg, ok := r.Get(serverName)
	if !ok {
		return nil, fmt.Errorf("mcpregistry: server %q is not registered", serverName)
	}

	sess, err := mcpclient.Connect(ctx, cfg)
	if err != nil {
		r.markFailed(serverName, err)
		return nil, err
	}
	defer sess.Close()

	r.clearFailure(serverName)
	return sess.ListTools(ctx)
}

// MarshalArgs is a small convenience used by callers that have raw JSON
// rather than a decoded map, matching the shape the script runtime passes
// tool arguments in.
func MarshalArgs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("mcpregistry: invalid arguments JSON: %w", err)
	}
	return m, nil
}
