package core

import "time"

// GoalStatus describes the lifecycle state of a goal as persisted in memory
// and reported in the final GoalResult.
type GoalStatus string

const (
	// GoalStatusInProgress is recorded under goal_<id> when planning has
	// finished and step execution begins.
	GoalStatusInProgress GoalStatus = "in_progress"
	// GoalStatusCompleted means every executed step settled without error.
	GoalStatusCompleted GoalStatus = "completed"
	// GoalStatusFailed means at least one trace entry carries an error.
	GoalStatusFailed GoalStatus = "failed"
)

// Goal is a natural-language request submitted to an agent. ID may be left
// empty by the caller; the agent assigns one before execution. Meta carries
// opaque caller-provided data and is never interpreted by the pipeline.
type Goal struct {
	ID   string         `json:"id,omitempty"`
	Text string         `json:"text"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Step is one typed unit of work within a plan. Type names the capability
// the executor dispatches to; Input is the capability-specific argument map.
// Steps are produced only by the planner and are immutable afterwards.
type Step struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Input map[string]any `json:"input"`
}

// Plan is an ordered sequence of steps. Ordering is execution order; the
// executor never reorders steps.
type Plan struct {
	Steps []Step `json:"steps"`
}

// StepResult is the discriminated outcome of one step attempt. Exactly one
// of the three shapes holds:
//
//   - success:   OK true plus a capability-specific Payload (and Text for
//     the reserved respond type)
//   - error:     Error non-empty
//   - simulated: OK true, Simulated true, Step set to the step type
//
// Capabilities return expected domain failures as an error-shaped result
// rather than a Go error; Go errors are reserved for retryable
// infrastructure failures (timeouts, I/O).
type StepResult struct {
	OK        bool           `json:"ok,omitempty"`
	Error     string         `json:"error,omitempty"`
	Simulated bool           `json:"simulated,omitempty"`
	Step      string         `json:"step,omitempty"`
	Message   string         `json:"message,omitempty"`
	Text      string         `json:"text,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// IsError reports whether the result is the error shape.
func (r StepResult) IsError() bool { return r.Error != "" }

// OKResult builds a success result carrying a capability payload.
func OKResult(payload map[string]any) StepResult {
	return StepResult{OK: true, Payload: payload}
}

// TextResult builds a success result carrying response text.
func TextResult(text string) StepResult {
	return StepResult{OK: true, Text: text}
}

// ErrorResult builds an error-shaped result.
func ErrorResult(reason string) StepResult {
	return StepResult{Error: reason}
}

// SimulatedResult builds the result returned in simulate mode for a step of
// the given type.
func SimulatedResult(stepType string) StepResult {
	return StepResult{
		OK:        true,
		Simulated: true,
		Step:      stepType,
		Message:   "Simulated execution of " + stepType,
	}
}

// TraceEntry records one attempted step and its outcome. Entries are
// appended by the agent in plan order, one per attempted step.
type TraceEntry struct {
	Step      Step       `json:"step"`
	Res       StepResult `json:"res"`
	Timestamp time.Time  `json:"timestamp"`
}

// GoalResult is the immutable structured outcome of one handled goal. Status
// is GoalStatusFailed iff any trace entry's result is an error. The trace
// may be shorter than the plan only when its last entry is an error
// (fail-fast execution).
type GoalResult struct {
	GoalID      string       `json:"goalId"`
	Plan        Plan         `json:"plan"`
	Trace       []TraceEntry `json:"trace"`
	Status      GoalStatus   `json:"status"`
	CompletedAt time.Time    `json:"completedAt"`
}

// Failed reports whether any trace entry carries an error.
func (r *GoalResult) Failed() bool {
	for _, t := range r.Trace {
		if t.Res.IsError() {
			return true
		}
	}
	return false
}
