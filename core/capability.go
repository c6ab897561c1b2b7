package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RespondType is the reserved step type handled by the executor itself: it
// echoes the step's input text back to the caller without dispatching to a
// registered capability.
const RespondType = "respond"

// Capability is the contract for a pluggable tool an executor can dispatch
// steps to.
//
// Execute receives the step input and the owning agent's memory log. Expected
// domain failures must be returned as an error-shaped StepResult, not as a Go
// error: returned Go errors drive the executor's retry loop and are reserved
// for retryable infrastructure failures.
//
// Implementations must be safe for concurrent use; the executor may invoke
// the same capability from multiple goroutines during batch execution.
type Capability interface {
	// Name returns the unique step type this capability serves.
	Name() string

	// Description returns a human-readable summary shown to the planning
	// service so it knows when to schedule this capability.
	Description() string

	// InputSchema returns a minimal JSON-Schema-like map describing the
	// expected input shape.
	InputSchema() map[string]any

	// Execute performs the work. It must respect ctx cancellation.
	Execute(ctx context.Context, input map[string]any, mem Memory) (StepResult, error)
}

// Registry maps step type names to capabilities. The zero value is not
// usable; construct with NewRegistry. Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]Capability
}

// NewRegistry creates an empty capability registry, optionally seeded with
// the given capabilities.
func NewRegistry(capabilities ...Capability) *Registry {
	r := &Registry{capabilities: make(map[string]Capability)}
	for _, c := range capabilities {
		r.Register(c)
	}
	return r
}

// Register adds a capability under its name. Last write wins on collision.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c.Name()] = c
}

// Get returns the capability registered under name, if any.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.capabilities[name]
	return c, ok
}

// Has reports whether a capability is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the sorted list of registered capability names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Format renders the registry as a textual description for the planning
// service: one line per capability with name, description and input shape.
func (r *Registry) Format() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		c := r.capabilities[name]
		schema, err := json.Marshal(c.InputSchema())
		if err != nil {
			schema = []byte("{}")
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s. Input: %s", c.Name(), c.Description(), schema)
	}
	return b.String()
}
