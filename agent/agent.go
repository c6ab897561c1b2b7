// Package agent implements the goal orchestrator: it owns one memory log,
// one planner, one executor and one goal queue, and drives a goal through
// planning, sequential step execution and result persistence.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/goalmesh/core"
	"github.com/hupe1980/goalmesh/executor"
	"github.com/hupe1980/goalmesh/internal/util"
	"github.com/hupe1980/goalmesh/logging"
	"github.com/hupe1980/goalmesh/planner"
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Logger receives goal lifecycle diagnostics.
	Logger logging.Logger
	// QueueSize is the goal queue buffer; AddGoal blocks when it is full.
	QueueSize int
}

// Agent converts goals into plans and executes them step by step. Each
// agent owns exactly one memory log (created with the agent, destroyed with
// it), one planner, one executor and one goal queue. The agent id is
// assigned by the caller.
//
// Goals submitted through AddGoal are serialized by the queue worker: at
// most one queued goal executes at a time. Direct HandleGoal calls bypass
// the queue and are the caller's responsibility to serialize if needed.
type Agent struct {
	id       string
	memory   core.Memory
	planner  *planner.Planner
	executor *executor.Executor
	logger   logging.Logger
	queue    *goalQueue
}

// New constructs an Agent with the given identity and collaborators.
func New(id string, mem core.Memory, p *planner.Planner, ex *executor.Executor, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Logger:    logging.NoOpLogger{},
		QueueSize: 64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Agent{
		id:       id,
		memory:   mem,
		planner:  p,
		executor: ex,
		logger:   opts.Logger,
		queue:    newGoalQueue(opts.QueueSize),
	}
}

// ID returns the agent's identifier.
func (a *Agent) ID() string { return a.id }

// Memory returns the agent's memory log. Used by the multi-agent System for
// delegation context sharing.
func (a *Agent) Memory() core.Memory { return a.memory }

// HandleGoal runs the full pipeline for one goal: plan, record the goal as
// in progress, execute steps strictly sequentially, stop at the first
// error-shaped result, and persist the final outcome.
//
// Step failures are data: they appear in the trace and flip the status to
// failed, but HandleGoal still returns the result. A returned Go error
// means the pipeline itself could not run (memory I/O failure or context
// cancellation).
func (a *Agent) HandleGoal(ctx context.Context, goal core.Goal, opts executor.Options) (*core.GoalResult, error) {
	start := time.Now()

	goalID := goal.ID
	if goalID == "" {
		goalID = util.NewID()
		goal.ID = goalID
	}
	plan := a.planner.CreatePlan(ctx, goal, a.memory)

	if err := a.memory.Add("goal_"+goalID, goalRecord(goal, plan)); err != nil {
		return nil, fmt.Errorf("failed to record goal %s: %w", goalID, err)
	}

	trace := make([]core.TraceEntry, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		res, err := a.executor.Execute(ctx, step, a.memory, opts)
		if err != nil {
			return nil, fmt.Errorf("goal %s aborted at step %s: %w", goalID, step.ID, err)
		}
		trace = append(trace, core.TraceEntry{Step: step, Res: res, Timestamp: time.Now()})
		if res.IsError() {
			// Fail fast: remaining planned steps are never attempted.
			break
		}
	}

	result := &core.GoalResult{
		GoalID:      goalID,
		Plan:        plan,
		Trace:       trace,
		Status:      core.GoalStatusCompleted,
		CompletedAt: time.Now(),
	}
	if result.Failed() {
		result.Status = core.GoalStatusFailed
	}

	if err := a.memory.Add("goal_"+goalID+"_result", result); err != nil {
		return nil, fmt.Errorf("failed to record result for goal %s: %w", goalID, err)
	}

	a.logger.Info("agent.goal.handled",
		"agent_id", a.id,
		"goal_id", goalID,
		"status", string(result.Status),
		"executed_steps", len(trace),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// AddGoal enqueues a goal for background handling. Start must be called for
// the queue to drain. Blocks when the queue buffer is full.
func (a *Agent) AddGoal(goal core.Goal) {
	a.queue.add(goal)
}

// Start launches the queue worker that drains goals one at a time using
// HandleGoal with default execution options. Calling Start more than once
// is a no-op.
func (a *Agent) Start(ctx context.Context) {
	a.queue.start(ctx, func(goal core.Goal) {
		if _, err := a.HandleGoal(ctx, goal, executor.Options{}); err != nil {
			a.logger.Error("agent.goal.failed", "agent_id", a.id, "goal_id", goal.ID, "error", err.Error())
		}
	})
}

// Stop shuts the queue worker down after the goal currently in flight
// settles. Goals still buffered are dropped.
func (a *Agent) Stop() {
	a.queue.stop()
}

// goalRecord builds the goal_<id> memory value. Nested maps rather than
// structs so in-memory and JSON-roundtripping stores expose the same shape
// to readers.
func goalRecord(goal core.Goal, plan core.Plan) map[string]any {
	return map[string]any{
		"goal": map[string]any{
			"id":   goal.ID,
			"text": goal.Text,
			"meta": goal.Meta,
		},
		"plan":   plan,
		"status": string(core.GoalStatusInProgress),
	}
}
