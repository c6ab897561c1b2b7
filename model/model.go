// Package model defines the planning service contract used by the planner
// plus a deterministic mock for tests. Provider-backed implementations live
// in the openai and anthropic subpackages.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/goalmesh/core"
)

// Service is the model-backed planning collaborator. Both methods follow a
// null-on-failure contract: returning nil (or an error) is treated by the
// planner as "no plan" and silently recovered, never surfaced to callers.
type Service interface {
	// GeneratePlan converts a natural-language goal plus a textual
	// capability listing (and optional memory context) into a plan.
	// Returning a nil plan, an error, or a plan with zero steps are all
	// equivalent: the caller falls back to deterministic planning.
	GeneratePlan(ctx context.Context, goal, capabilities, memoryContext string) (*core.Plan, error)

	// ParseNaturalLanguage extracts structured data from free text
	// according to a JSON-Schema-like shape. Best effort; an empty map is
	// a valid outcome. Not used by the core goal pipeline.
	ParseNaturalLanguage(ctx context.Context, text string, schema map[string]any) (map[string]any, error)
}

// Info contains metadata about a service implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// MockService is a lightweight in-memory Service useful for tests and
// examples. Plans are registered per goal text; unregistered goals yield a
// nil plan, exercising the rule-based fallback path.
type MockService struct {
	mu    sync.Mutex
	plans map[string]*core.Plan
	err   error
	calls int
}

// NewMockService constructs an empty MockService.
func NewMockService() *MockService {
	return &MockService{plans: make(map[string]*core.Plan)}
}

// AddPlan registers a deterministic canned plan for a goal text.
func (m *MockService) AddPlan(goal string, plan *core.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[goal] = plan
}

// FailWith makes every subsequent call return err.
func (m *MockService) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many GeneratePlan invocations were made.
func (m *MockService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GeneratePlan implements Service.
func (m *MockService) GeneratePlan(_ context.Context, goal, _, _ string) (*core.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.plans[goal], nil
}

// ParseNaturalLanguage implements Service; the mock echoes nothing.
func (m *MockService) ParseNaturalLanguage(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, fmt.Errorf("mock parse failure: %w", m.err)
	}
	return map[string]any{}, nil
}
