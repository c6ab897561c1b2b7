// Package executor runs plan steps against the capability registry with
// retry, per-attempt timeout, simulate mode, in-flight deduplication and
// bounded batch concurrency.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/goalmesh/core"
	"github.com/hupe1980/goalmesh/logging"
)

const (
	// DefaultRetries is the total number of attempts per step.
	DefaultRetries = 3
	// DefaultTimeout bounds the wall-clock time of a single attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultConcurrency bounds parallel steps in batch execution.
	DefaultConcurrency = 3
	// DefaultSimulateDelay is the fixed delay of a simulated execution.
	DefaultSimulateDelay = 500 * time.Millisecond
	// DefaultBackoffUnit is the linear backoff increment between attempts:
	// the executor sleeps unit*1 after the first failure, unit*2 after the
	// second, and so on.
	DefaultBackoffUnit = time.Second
)

// Options are per-call execution options. Zero values are replaced by the
// package defaults.
type Options struct {
	// Retries is the total number of attempts (not additional retries).
	Retries int
	// Timeout applies per attempt; every retry gets a fresh window.
	Timeout time.Duration
	// Simulate bypasses dispatch and fabricates a success result.
	Simulate bool
	// Concurrency bounds parallel steps in ExecuteConcurrent.
	Concurrency int
}

// Config holds dependency and tuning overrides passed to New().
type Config struct {
	// Logger receives execution diagnostics.
	Logger logging.Logger
	// MaxConcurrency is the default batch concurrency.
	MaxConcurrency int
	// SimulateDelay replaces the fixed simulated execution delay.
	SimulateDelay time.Duration
	// BackoffUnit replaces the linear backoff increment.
	BackoffUnit time.Duration
}

// Executor dispatches steps to capabilities. Failures are always returned
// as data: a capability that keeps failing yields an error-shaped
// StepResult, never a Go error. The only Go errors Execute returns are
// memory write failures (fatal by contract) and context cancellation.
//
// Deduplication: executions are keyed by (step id, step type). While one is
// in flight on this instance, concurrent callers for the same key await and
// receive the same settled result instead of re-invoking the capability.
// The dedup table is process-local and cleared once the execution settles.
type Executor struct {
	registry       *core.Registry
	logger         logging.Logger
	maxConcurrency int
	simulateDelay  time.Duration
	backoffUnit    time.Duration

	mu     sync.Mutex
	active map[string]*inflight
}

// inflight is a settled-once execution slot shared by deduplicated callers.
type inflight struct {
	done chan struct{}
	res  core.StepResult
	err  error
}

// New constructs an Executor over the given registry with optional
// overrides.
func New(registry *core.Registry, optFns ...func(c *Config)) *Executor {
	cfg := Config{
		Logger:         logging.NoOpLogger{},
		MaxConcurrency: DefaultConcurrency,
		SimulateDelay:  DefaultSimulateDelay,
		BackoffUnit:    DefaultBackoffUnit,
	}
	for _, fn := range optFns {
		fn(&cfg)
	}

	return &Executor{
		registry:       registry,
		logger:         cfg.Logger,
		maxConcurrency: cfg.MaxConcurrency,
		simulateDelay:  cfg.SimulateDelay,
		backoffUnit:    cfg.BackoffUnit,
		active:         make(map[string]*inflight),
	}
}

// Execute runs one step and returns its result. See the Executor doc for
// the failure model.
func (e *Executor) Execute(ctx context.Context, step core.Step, mem core.Memory, opts Options) (core.StepResult, error) {
	opts = e.normalize(opts)

	if opts.Simulate {
		select {
		case <-ctx.Done():
			return core.StepResult{}, ctx.Err()
		case <-time.After(e.simulateDelay):
		}
		return core.SimulatedResult(step.Type), nil
	}

	key := step.ID + "_" + step.Type

	e.mu.Lock()
	if fl, ok := e.active[key]; ok {
		e.mu.Unlock()
		select {
		case <-ctx.Done():
			return core.StepResult{}, ctx.Err()
		case <-fl.done:
			return fl.res, fl.err
		}
	}
	fl := &inflight{done: make(chan struct{})}
	e.active[key] = fl
	e.mu.Unlock()

	res, err := e.executeWithRetry(ctx, step, mem, opts)

	fl.res, fl.err = res, err
	close(fl.done)
	e.mu.Lock()
	delete(e.active, key)
	e.mu.Unlock()

	return res, err
}

// ExecuteConcurrent runs steps in chunks of size Concurrency: all steps
// within a chunk run in parallel, and the whole chunk settles before the
// next chunk starts. Results are returned in step order. Unlike the
// agent's sequential goal path this entry point does not fail fast.
func (e *Executor) ExecuteConcurrent(ctx context.Context, steps []core.Step, mem core.Memory, opts Options) ([]core.StepResult, error) {
	opts = e.normalize(opts)

	results := make([]core.StepResult, len(steps))
	for start := 0; start < len(steps); start += opts.Concurrency {
		end := start + opts.Concurrency
		if end > len(steps) {
			end = len(steps)
		}

		var wg sync.WaitGroup
		errCh := make(chan error, end-start)
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := e.Execute(ctx, steps[i], mem, opts)
				if err != nil {
					errCh <- fmt.Errorf("batch execution failed for step %s: %w", steps[i].ID, err)
					return
				}
				results[i] = res
			}(i)
		}
		wg.Wait()
		close(errCh)

		if len(errCh) > 0 {
			return results, <-errCh
		}
	}
	return results, nil
}

// executeWithRetry dispatches with a fresh timeout window per attempt and
// linear backoff between attempts. Exhausted retries surface as an
// error-shaped result carrying the last failure's message.
func (e *Executor) executeWithRetry(ctx context.Context, step core.Step, mem core.Memory, opts Options) (core.StepResult, error) {
	var lastErr error
	for attempt := 0; attempt < opts.Retries; attempt++ {
		c, ok := e.registry.Get(step.Type)
		if !ok {
			if step.Type == core.RespondType {
				text, _ := step.Input["text"].(string)
				return core.TextResult("Response: " + text), nil
			}
			return core.ErrorResult(fmt.Sprintf("Unknown step type %s", step.Type)), nil
		}

		start := time.Now()
		res, err := e.dispatch(ctx, c, step, mem, opts.Timeout)
		if err == nil {
			e.logger.Debug("executor.step.settled", "step_type", step.Type, "duration_ms", time.Since(start).Milliseconds(), "ok", !res.IsError())
			if merr := mem.Add("last_result_"+step.Type, res); merr != nil {
				return core.StepResult{}, fmt.Errorf("failed to record step result: %w", merr)
			}
			return res, nil
		}

		lastErr = err
		e.logger.Warn("executor.step.attempt_failed", "step_type", step.Type, "attempt", attempt+1, "error", err.Error())

		if attempt < opts.Retries-1 {
			select {
			case <-ctx.Done():
				return core.StepResult{}, ctx.Err()
			case <-time.After(e.backoffUnit * time.Duration(attempt+1)):
			}
		}
	}
	return core.ErrorResult(lastErr.Error()), nil
}

// dispatch races the capability against the attempt deadline. The loser is
// cancelled via context; a late completion is discarded, never observed as
// the attempt's outcome.
func (e *Executor) dispatch(ctx context.Context, c core.Capability, step core.Step, mem core.Memory, timeout time.Duration) (core.StepResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res core.StepResult
		err error
	}
	// Buffered so an abandoned attempt can still send and terminate.
	ch := make(chan outcome, 1)
	go func() {
		res, err := c.Execute(attemptCtx, step.Input, mem)
		ch <- outcome{res: res, err: err}
	}()

	select {
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return core.StepResult{}, fmt.Errorf("capability execution timed out after %s", timeout)
		}
		return core.StepResult{}, attemptCtx.Err()
	case out := <-ch:
		return out.res, out.err
	}
}

func (e *Executor) normalize(opts Options) Options {
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = e.maxConcurrency
	}
	return opts
}
