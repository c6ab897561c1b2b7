package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/goalmesh/core"
	"github.com/hupe1980/goalmesh/memory"
)

// fakeCapability is a scriptable capability: it counts invocations and
// delegates to fn.
type fakeCapability struct {
	name  string
	calls atomic.Int64
	fn    func(ctx context.Context, input map[string]any, mem core.Memory) (core.StepResult, error)
}

func (c *fakeCapability) Name() string                { return c.name }
func (c *fakeCapability) Description() string         { return "test capability" }
func (c *fakeCapability) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (c *fakeCapability) Execute(ctx context.Context, input map[string]any, mem core.Memory) (core.StepResult, error) {
	c.calls.Add(1)
	return c.fn(ctx, input, mem)
}

// newTestExecutor builds an executor with near-zero delays so retry and
// simulate paths run fast.
func newTestExecutor(caps ...core.Capability) *Executor {
	return New(core.NewRegistry(caps...), func(c *Config) {
		c.SimulateDelay = time.Millisecond
		c.BackoffUnit = time.Millisecond
	})
}

func TestExecutor_Success(t *testing.T) {
	cap1 := &fakeCapability{
		name: "search_flights",
		fn: func(_ context.Context, input map[string]any, _ core.Memory) (core.StepResult, error) {
			return core.OKResult(map[string]any{"destination": input["destination"]}), nil
		},
	}
	ex := newTestExecutor(cap1)
	mem := memory.NewInMemoryStore()

	res, err := ex.Execute(context.Background(), core.Step{
		ID:    "1",
		Type:  "search_flights",
		Input: map[string]any{"destination": "Kyoto"},
	}, mem, Options{})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "Kyoto", res.Payload["destination"])
	assert.Equal(t, int64(1), cap1.calls.Load())

	// Success leaves a last_result record behind
	records, err := mem.Query("last_result_search_flights")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestExecutor_RespondWithoutCapability(t *testing.T) {
	ex := newTestExecutor()

	res, err := ex.Execute(context.Background(), core.Step{
		ID:    "1",
		Type:  core.RespondType,
		Input: map[string]any{"text": "hello"},
	}, memory.NewInMemoryStore(), Options{})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "Response: hello", res.Text)
}

func TestExecutor_UnknownStepType(t *testing.T) {
	ex := newTestExecutor()

	res, err := ex.Execute(context.Background(), core.Step{
		ID:   "1",
		Type: "teleport",
	}, memory.NewInMemoryStore(), Options{})
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Equal(t, "Unknown step type teleport", res.Error)
}

func TestExecutor_RetriesThenSucceeds(t *testing.T) {
	cap1 := &fakeCapability{name: "flaky"}
	cap1.fn = func(_ context.Context, _ map[string]any, _ core.Memory) (core.StepResult, error) {
		if cap1.calls.Load() < 3 {
			return core.StepResult{}, errors.New("transient failure")
		}
		return core.OKResult(nil), nil
	}
	ex := newTestExecutor(cap1)

	res, err := ex.Execute(context.Background(), core.Step{ID: "1", Type: "flaky"}, memory.NewInMemoryStore(), Options{})
	require.NoError(t, err)
	assert.False(t, res.IsError())
	assert.Equal(t, int64(3), cap1.calls.Load())
}

func TestExecutor_RetriesExhausted(t *testing.T) {
	cap1 := &fakeCapability{
		name: "broken",
		fn: func(_ context.Context, _ map[string]any, _ core.Memory) (core.StepResult, error) {
			return core.StepResult{}, errors.New("permanent failure")
		},
	}
	ex := newTestExecutor(cap1)

	res, err := ex.Execute(context.Background(), core.Step{ID: "1", Type: "broken"}, memory.NewInMemoryStore(), Options{})
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Equal(t, "permanent failure", res.Error)
	assert.Equal(t, int64(3), cap1.calls.Load())
}

func TestExecutor_ErrorShapedResultNotRetried(t *testing.T) {
	cap1 := &fakeCapability{
		name: "validator",
		fn: func(_ context.Context, _ map[string]any, _ core.Memory) (core.StepResult, error) {
			return core.ErrorResult("input validation failed"), nil
		},
	}
	ex := newTestExecutor(cap1)

	res, err := ex.Execute(context.Background(), core.Step{ID: "1", Type: "validator"}, memory.NewInMemoryStore(), Options{})
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Equal(t, int64(1), cap1.calls.Load())
}

func TestExecutor_Simulate(t *testing.T) {
	cap1 := &fakeCapability{
		name: "search_flights",
		fn: func(_ context.Context, _ map[string]any, _ core.Memory) (core.StepResult, error) {
			return core.OKResult(nil), nil
		},
	}
	ex := newTestExecutor(cap1)
	mem := memory.NewInMemoryStore()

	res, err := ex.Execute(context.Background(), core.Step{ID: "1", Type: "search_flights"}, mem, Options{Simulate: true})
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	assert.Equal(t, "Simulated execution of search_flights", res.Message)
	assert.Equal(t, int64(0), cap1.calls.Load(), "simulate must not invoke the capability")

	records, err := mem.Dump()
	require.NoError(t, err)
	assert.Empty(t, records, "simulate must not write memory")
}

func TestExecutor_Timeout(t *testing.T) {
	cap1 := &fakeCapability{
		name: "slow",
		fn: func(ctx context.Context, _ map[string]any, _ core.Memory) (core.StepResult, error) {
			<-ctx.Done()
			return core.StepResult{}, ctx.Err()
		},
	}
	ex := newTestExecutor(cap1)

	res, err := ex.Execute(context.Background(), core.Step{ID: "1", Type: "slow"}, memory.NewInMemoryStore(), Options{
		Retries: 1,
		Timeout: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Contains(t, res.Error, "timed out")
}

func TestExecutor_ContextCancellation(t *testing.T) {
	cap1 := &fakeCapability{
		name: "slow",
		fn: func(ctx context.Context, _ map[string]any, _ core.Memory) (core.StepResult, error) {
			<-ctx.Done()
			return core.StepResult{}, ctx.Err()
		},
	}
	ex := newTestExecutor(cap1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := ex.Execute(ctx, core.Step{ID: "1", Type: "slow"}, memory.NewInMemoryStore(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_MemoryWriteFailureIsFatal(t *testing.T) {
	cap1 := &fakeCapability{
		name: "ok",
		fn: func(_ context.Context, _ map[string]any, _ core.Memory) (core.StepResult, error) {
			return core.OKResult(nil), nil
		},
	}
	ex := newTestExecutor(cap1)

	_, err := ex.Execute(context.Background(), core.Step{ID: "1", Type: "ok"}, failingMemory{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record step result")
	assert.Equal(t, int64(1), cap1.calls.Load(), "memory write failure must not trigger a retry")
}

func TestExecutor_Deduplication(t *testing.T) {
	release := make(chan struct{})
	cap1 := &fakeCapability{name: "slow"}
	cap1.fn = func(_ context.Context, _ map[string]any, _ core.Memory) (core.StepResult, error) {
		<-release
		return core.OKResult(map[string]any{"n": 1}), nil
	}
	ex := newTestExecutor(cap1)
	mem := memory.NewInMemoryStore()
	step := core.Step{ID: "1", Type: "slow"}

	const callers = 5
	var wg sync.WaitGroup
	results := make([]core.StepResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := ex.Execute(context.Background(), step, mem, Options{})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	// Let all callers reach the dedup table before releasing the capability.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), cap1.calls.Load(), "concurrent callers must share one execution")
	for _, res := range results {
		assert.True(t, res.OK)
	}

	// A later call for the same key executes again: dedup applies only while
	// an execution is in flight.
	res, err := ex.Execute(context.Background(), step, mem, Options{})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, int64(2), cap1.calls.Load())
}

func TestExecutor_DedupKeyIncludesType(t *testing.T) {
	var calls atomic.Int64
	mk := func(name string) *fakeCapability {
		return &fakeCapability{
			name: name,
			fn: func(_ context.Context, _ map[string]any, _ core.Memory) (core.StepResult, error) {
				calls.Add(1)
				return core.OKResult(nil), nil
			},
		}
	}
	ex := newTestExecutor(mk("a"), mk("b"))
	mem := memory.NewInMemoryStore()

	_, err := ex.Execute(context.Background(), core.Step{ID: "1", Type: "a"}, mem, Options{})
	require.NoError(t, err)
	_, err = ex.Execute(context.Background(), core.Step{ID: "1", Type: "b"}, mem, Options{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load())
}

func TestExecutor_ExecuteConcurrent(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64
	cap1 := &fakeCapability{name: "work"}
	cap1.fn = func(_ context.Context, input map[string]any, _ core.Memory) (core.StepResult, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return core.OKResult(map[string]any{"i": input["i"]}), nil
	}
	ex := newTestExecutor(cap1)

	steps := make([]core.Step, 7)
	for i := range steps {
		steps[i] = core.Step{ID: fmt.Sprintf("%d", i+1), Type: "work", Input: map[string]any{"i": i}}
	}

	results, err := ex.ExecuteConcurrent(context.Background(), steps, memory.NewInMemoryStore(), Options{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, results, 7)
	for i, res := range results {
		assert.Equal(t, i, res.Payload["i"], "results must be in step order")
	}
	assert.LessOrEqual(t, maxInFlight.Load(), int64(2), "chunking must bound parallelism")
	assert.Equal(t, int64(7), cap1.calls.Load())
}

func TestExecutor_DefaultsApplied(t *testing.T) {
	ex := newTestExecutor()

	opts := ex.normalize(Options{})
	assert.Equal(t, DefaultRetries, opts.Retries)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Equal(t, DefaultConcurrency, opts.Concurrency)
}

// failingMemory always fails writes.
type failingMemory struct{}

func (failingMemory) Add(string, any) error               { return errors.New("disk full") }
func (failingMemory) Query(string) ([]core.Record, error) { return nil, nil }
func (failingMemory) Dump() ([]core.Record, error)        { return nil, nil }
