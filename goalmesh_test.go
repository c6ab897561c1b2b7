package goalmesh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/goalmesh/agent"
	"github.com/hupe1980/goalmesh/config"
	"github.com/hupe1980/goalmesh/core"
	"github.com/hupe1980/goalmesh/executor"
	"github.com/hupe1980/goalmesh/memory"
	"github.com/hupe1980/goalmesh/planner"
)

func newSystemAgent(id string, mem core.Memory) *agent.Agent {
	registry := core.NewRegistry()
	p := planner.New(registry)
	ex := executor.New(registry, func(c *executor.Config) {
		c.BackoffUnit = time.Millisecond
		c.SimulateDelay = time.Millisecond
	})
	return agent.New(id, mem, p, ex)
}

func TestSystem_RegisterAndList(t *testing.T) {
	s := New()

	s.RegisterAgent("coach", newSystemAgent("coach", memory.NewInMemoryStore()))
	s.RegisterAgent("tutor", newSystemAgent("tutor", memory.NewInMemoryStore()))

	got, ok := s.GetAgent("coach")
	assert.True(t, ok)
	assert.Equal(t, "coach", got.ID())

	_, ok = s.GetAgent("missing")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"coach", "tutor"}, s.ListAgents())
}

func TestSystem_RegisterLastWriteWins(t *testing.T) {
	s := New()
	first := newSystemAgent("coach", memory.NewInMemoryStore())
	second := newSystemAgent("coach", memory.NewInMemoryStore())

	s.RegisterAgent("coach", first)
	s.RegisterAgent("coach", second)

	got, _ := s.GetAgent("coach")
	assert.Same(t, second, got)
	assert.Len(t, s.ListAgents(), 1)
}

func TestSystem_DelegateUnknownTarget(t *testing.T) {
	s := New()
	s.RegisterAgent("coach", newSystemAgent("coach", memory.NewInMemoryStore()))

	_, err := s.DelegateGoal(context.Background(), "coach", "ghost", core.Goal{Text: "Tell me a joke"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent ghost not found")
}

func TestSystem_DelegateSharesContextAndRecordsResult(t *testing.T) {
	coachMem := memory.NewInMemoryStore()
	tutorMem := memory.NewInMemoryStore()
	coach := newSystemAgent("coach", coachMem)
	tutor := newSystemAgent("tutor", tutorMem)

	s := New()
	s.RegisterAgent("coach", coach)
	s.RegisterAgent("tutor", tutor)

	ctx := context.Background()

	// Give the coach some history to share
	_, err := coach.HandleGoal(ctx, core.Goal{Text: "Tell me a joke"}, executor.Options{})
	require.NoError(t, err)
	_, err = coach.HandleGoal(ctx, core.Goal{Text: "Tell me another joke"}, executor.Options{})
	require.NoError(t, err)

	result, err := s.DelegateGoal(ctx, "coach", "tutor", core.Goal{Text: "Explain goroutines"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, core.GoalStatusCompleted, result.Status)

	// The tutor received at most three of the coach's recent goal records
	shared, err := tutorMem.Query("delegated_context_coach")
	require.NoError(t, err)
	assert.Len(t, shared, 3)

	// The coach holds the delegated result
	back, err := coachMem.Query("delegated_result_tutor_" + result.GoalID)
	require.NoError(t, err)
	require.Len(t, back, 1)
	got, ok := back[0].Value.(*core.GoalResult)
	require.True(t, ok)
	assert.Equal(t, result.GoalID, got.GoalID)
}

func TestSystem_DelegateFromUnregisteredSource(t *testing.T) {
	tutorMem := memory.NewInMemoryStore()
	s := New()
	s.RegisterAgent("tutor", newSystemAgent("tutor", tutorMem))

	result, err := s.DelegateGoal(context.Background(), "outsider", "tutor", core.Goal{Text: "Explain goroutines"})
	require.NoError(t, err)
	assert.Equal(t, core.GoalStatusCompleted, result.Status)

	shared, err := tutorMem.Query("delegated_context_outsider")
	require.NoError(t, err)
	assert.Empty(t, shared)
}

func TestSystem_Broadcast(t *testing.T) {
	s := New()
	s.RegisterAgent("coach", newSystemAgent("coach", memory.NewInMemoryStore()))
	s.RegisterAgent("tutor", newSystemAgent("tutor", memory.NewInMemoryStore()))

	outcomes := s.BroadcastGoal(context.Background(), core.Goal{Text: "Tell me a joke"})
	require.Len(t, outcomes, 2)
	for id, outcome := range outcomes {
		require.NoError(t, outcome.Err, "agent %s", id)
		require.NotNil(t, outcome.Result)
		assert.Equal(t, core.GoalStatusCompleted, outcome.Result.Status)
	}
}

func TestSystem_BroadcastIsolatesFailures(t *testing.T) {
	s := New()
	s.RegisterAgent("healthy", newSystemAgent("healthy", memory.NewInMemoryStore()))
	s.RegisterAgent("broken", newSystemAgent("broken", brokenMemory{}))

	outcomes := s.BroadcastGoal(context.Background(), core.Goal{Text: "Tell me a joke"})
	require.Len(t, outcomes, 2)

	assert.Error(t, outcomes["broken"].Err)
	assert.Nil(t, outcomes["broken"].Result)

	require.NoError(t, outcomes["healthy"].Err)
	assert.Equal(t, core.GoalStatusCompleted, outcomes["healthy"].Result.Status)
}

func TestSystem_BroadcastSubset(t *testing.T) {
	s := New()
	s.RegisterAgent("coach", newSystemAgent("coach", memory.NewInMemoryStore()))
	s.RegisterAgent("tutor", newSystemAgent("tutor", memory.NewInMemoryStore()))

	outcomes := s.BroadcastGoal(context.Background(), core.Goal{Text: "Tell me a joke"}, "tutor", "ghost")
	require.Len(t, outcomes, 1)
	assert.Contains(t, outcomes, "tutor")
}

func TestNewMemory(t *testing.T) {
	t.Run("in-memory driver", func(t *testing.T) {
		mem, err := NewMemory(config.MemoryConfig{Driver: config.MemoryDriverInMemory}, "agent-1")
		require.NoError(t, err)
		assert.IsType(t, &memory.InMemoryStore{}, mem)
	})

	t.Run("sqlite driver", func(t *testing.T) {
		mem, err := NewMemory(config.MemoryConfig{Driver: config.MemoryDriverSQLite, Path: ":memory:"}, "agent-1")
		require.NoError(t, err)
		store, ok := mem.(*memory.SQLiteStore)
		require.True(t, ok)
		defer store.Close()

		require.NoError(t, store.Add("goal_1", "x"))
	})
}

// brokenMemory fails every write.
type brokenMemory struct{}

func (brokenMemory) Add(string, any) error               { return errors.New("disk full") }
func (brokenMemory) Query(string) ([]core.Record, error) { return nil, nil }
func (brokenMemory) Dump() ([]core.Record, error)        { return nil, nil }
