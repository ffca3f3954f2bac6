// Package calltools is the registry of callback-backed tools: functions the
// script runtime can call that are implemented outside the sandbox, either
// by an in-process Go closure or (via internal/wsbridge) by the connected
// client over WebSocket.
package calltools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Metadata describes a callable tool's identity and optional schemas.
type Metadata struct {
	Namespace    string
	Name         string
	Description  string
	InputSchema  any
	OutputSchema any
}

// ID returns the "<namespace>.<name>" identifier for this tool.
func (m Metadata) ID() string {
	return m.Namespace + "." + m.Name
}

// CallbackFunc is the shape every registered callback must satisfy: given
// optional JSON-encoded input, it returns JSON-encoded output or an error.
type CallbackFunc func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

type entry struct {
	metadata Metadata
	callback CallbackFunc
}

// Registry is a concurrency-safe namespace+name -> (Metadata, CallbackFunc)
// map.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a callback under metadata's id. It returns an error if a
// callback is already registered under that id.
func (r *Registry) Register(metadata Metadata, callback CallbackFunc) error {
	if metadata.Namespace == "" || metadata.Name == "" {
		return fmt.Errorf("calltools: namespace and name must both be non-empty")
	}
	if callback == nil {
		return fmt.Errorf("calltools: callback must not be nil")
	}
	id := metadata.ID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("calltools: %q is already registered", id)
	}
	r.entries[id] = entry{metadata: metadata, callback: callback}
	return nil
}

// Remove deletes the callback registered under "<namespace>.<name>", if any.
func (r *Registry) Remove(namespace, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, namespace+"."+name)
}

// Has reports whether a callback is registered under "<namespace>.<name>".
func (r *Registry) Has(namespace, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[namespace+"."+name]
	return ok
}

// Get returns the Metadata registered under "<namespace>.<name>".
func (r *Registry) Get(namespace, name string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[namespace+"."+name]
	return e.metadata, ok
}

// List returns the Metadata for every registered callback.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.metadata)
	}
	return out
}

// Invoke calls the callback registered under "<namespace>.<name>" with
// input. The registry's read lock is released before the callback is
// awaited, so a callback that re-enters the registry (directly or via code
// that eventually calls back into Invoke) cannot deadlock against a writer.
func (r *Registry) Invoke(ctx context.Context, namespace, name string, input json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	e, ok := r.entries[namespace+"."+name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("calltools: %q.%q is not registered", namespace, name)
	}

	out, err := e.callback(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("calltools: callback %q.%q failed: %w", namespace, name, err)
	}
	return out, nil
}
