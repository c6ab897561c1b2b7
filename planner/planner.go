// Package planner converts goals into plans. It combines an optional
// model-backed planning service with a deterministic rule-based fallback,
// feeding the service a bounded context of recent goals from memory.
package planner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hupe1980/goalmesh/core"
	"github.com/hupe1980/goalmesh/logging"
	"github.com/hupe1980/goalmesh/model"
)

const (
	// defaultMemoryLimit bounds how many recent goal records feed the
	// planning service.
	defaultMemoryLimit = 5
	// defaultContextBudget bounds the memory context string in characters
	// so conversational continuity cannot grow without limit.
	defaultContextBudget = 500
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Service is the model-backed plan generator. May be nil; planning
	// then always uses the rule-based fallback.
	Service model.Service
	// Logger receives planning diagnostics.
	Logger logging.Logger
	// MemoryLimit caps the recent goal records used as context.
	MemoryLimit int
	// ContextBudget caps the memory context length in characters.
	ContextBudget int
}

// Planner produces a plan for a goal. Service failures of any kind
// (unreachable, unparsable response, empty plan) are silently recovered via
// the rule-based fallback and never surfaced to callers.
type Planner struct {
	registry      *core.Registry
	service       model.Service
	ruleBased     *RuleBasedPlanner
	logger        logging.Logger
	memoryLimit   int
	contextBudget int
}

// New constructs a Planner over the given capability registry with optional
// overrides.
func New(registry *core.Registry, optFns ...func(o *Options)) *Planner {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		MemoryLimit:   defaultMemoryLimit,
		ContextBudget: defaultContextBudget,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Planner{
		registry:      registry,
		service:       opts.Service,
		ruleBased:     NewRuleBasedPlanner(registry),
		logger:        opts.Logger,
		memoryLimit:   opts.MemoryLimit,
		contextBudget: opts.ContextBudget,
	}
}

// CreatePlan converts the goal into an ordered plan. It never fails: when
// the planning service yields no usable plan the deterministic fallback
// answers instead.
func (p *Planner) CreatePlan(ctx context.Context, goal core.Goal, mem core.Memory) core.Plan {
	start := time.Now()

	if p.service != nil {
		memoryContext := p.buildMemoryContext(mem)
		plan, err := p.service.GeneratePlan(ctx, goal.Text, p.registry.Format(), memoryContext)
		if err != nil {
			p.logger.Debug("planner.service.failed", "error", err.Error())
		} else if plan != nil && len(plan.Steps) > 0 {
			p.logger.Info("planner.plan.created", "planner", "service", "step_count", len(plan.Steps), "duration_ms", time.Since(start).Milliseconds())
			return *plan
		}
	}

	plan := p.ruleBased.CreatePlan(goal.Text)
	p.logger.Info("planner.plan.created", "planner", "rule_based", "step_count", len(plan.Steps), "duration_ms", time.Since(start).Milliseconds())
	return plan
}

// buildMemoryContext reads the most recent goal records and renders them as
// a bounded context string. Memory read failures degrade to no context.
func (p *Planner) buildMemoryContext(mem core.Memory) string {
	records, err := mem.Query("goal_%")
	if err != nil {
		p.logger.Warn("planner.memory.query_failed", "error", err.Error())
		return ""
	}
	if len(records) == 0 {
		return ""
	}
	if len(records) > p.memoryLimit {
		records = records[:p.memoryLimit]
	}

	texts := make([]any, 0, len(records))
	for _, r := range records {
		texts = append(texts, goalText(r))
	}
	encoded, err := json.Marshal(texts)
	if err != nil {
		return ""
	}

	context := "Recent goals: " + string(encoded)
	if len(context) > p.contextBudget {
		context = context[:p.contextBudget]
	}
	return context
}

// goalText pulls the goal text out of a stored goal_<id> record, falling
// back to the raw value when the record has an unexpected shape.
func goalText(r core.Record) any {
	m, ok := r.Value.(map[string]any)
	if !ok {
		return r.Value
	}
	g, ok := m["goal"].(map[string]any)
	if !ok {
		return r.Value
	}
	if text, ok := g["text"].(string); ok {
		return text
	}
	return r.Value
}
