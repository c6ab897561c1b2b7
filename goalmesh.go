// Package goalmesh provides the multi-agent registry layered on top of the
// goal pipeline packages (agent, planner, executor, memory). Most
// applications interact with this package by:
//  1. Creating a System via New()
//  2. Registering one or more agents, each owning its private memory log
//  3. Submitting goals directly, delegating them between agents, or
//     broadcasting them to many agents in parallel
//
// The System owns nothing beyond the id to agent mapping; agent lifecycle
// (creation, memory backing, shutdown) belongs to the caller.
package goalmesh

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/goalmesh/agent"
	"github.com/hupe1980/goalmesh/config"
	"github.com/hupe1980/goalmesh/core"
	"github.com/hupe1980/goalmesh/executor"
	"github.com/hupe1980/goalmesh/logging"
	"github.com/hupe1980/goalmesh/memory"
	redismem "github.com/hupe1980/goalmesh/memory/redis"
)

// delegationContextLimit is how many recent goal records are copied into a
// delegation target's memory.
const delegationContextLimit = 3

// Options configures the System.
type Options struct {
	// Logger receives registry and delegation diagnostics.
	Logger logging.Logger
}

// System holds many agents by id and coordinates delegation and broadcast
// between them. Safe for concurrent use; last write wins when two
// registrations race on the same id.
type System struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent
	logger logging.Logger
}

// BroadcastResult is one agent's outcome within a broadcast: either the
// goal result or the error its HandleGoal returned. Exactly one field is
// set.
type BroadcastResult struct {
	Result *core.GoalResult
	Err    error
}

// New creates an empty System with optional overrides.
func New(optFns ...func(o *Options)) *System {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &System{
		agents: make(map[string]*agent.Agent),
		logger: opts.Logger,
	}
}

// NewMemory builds a memory store for one agent from configuration. The
// in-memory driver ignores agentID; the redis driver uses it to namespace
// the agent's log.
func NewMemory(cfg config.MemoryConfig, agentID string) (core.Memory, error) {
	switch cfg.Driver {
	case config.MemoryDriverSQLite:
		return memory.NewSQLiteStore(cfg.Path)
	case config.MemoryDriverRedis:
		return redismem.NewStore(cfg.RedisURL, agentID)
	default:
		return memory.NewInMemoryStore(), nil
	}
}

// RegisterAgent adds an agent under id. Last write wins on collision.
func (s *System) RegisterAgent(id string, a *agent.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[id] = a
}

// GetAgent returns the agent registered under id, if any.
func (s *System) GetAgent(id string) (*agent.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	return a, ok
}

// ListAgents returns the ids of all registered agents.
func (s *System) ListAgents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	return ids
}

// DelegateGoal hands a goal from one agent to another. The target must be
// registered; an unknown target is the one delegation failure raised to the
// caller. If the source agent is registered, its most recent goal records
// are copied into the target's memory beforehand (best effort, not
// transactional) and the result is written back into the source's memory
// afterwards.
func (s *System) DelegateGoal(ctx context.Context, fromID, toID string, goal core.Goal) (*core.GoalResult, error) {
	to, ok := s.GetAgent(toID)
	if !ok {
		return nil, fmt.Errorf("agent %s not found", toID)
	}

	from, fromRegistered := s.GetAgent(fromID)
	if fromRegistered {
		s.shareContext(from, to, fromID)
	}

	result, err := to.HandleGoal(ctx, goal, executor.Options{})
	if err != nil {
		return nil, fmt.Errorf("delegated goal handling failed on agent %s: %w", toID, err)
	}

	if fromRegistered {
		key := fmt.Sprintf("delegated_result_%s_%s", toID, result.GoalID)
		if err := from.Memory().Add(key, result); err != nil {
			s.logger.Warn("system.delegate.result_write_failed", "from", fromID, "to", toID, "error", err.Error())
		}
	}
	return result, nil
}

// shareContext copies the source agent's recent goal records into the
// target's memory under a delegated_context key. Failures are logged and
// ignored: context sharing is best effort.
func (s *System) shareContext(from, to *agent.Agent, fromID string) {
	records, err := from.Memory().Query("goal_")
	if err != nil {
		s.logger.Warn("system.delegate.context_read_failed", "from", fromID, "error", err.Error())
		return
	}
	if len(records) > delegationContextLimit {
		records = records[:delegationContextLimit]
	}
	for _, r := range records {
		if err := to.Memory().Add("delegated_context_"+fromID, r.Value); err != nil {
			s.logger.Warn("system.delegate.context_write_failed", "from", fromID, "error", err.Error())
		}
	}
}

// BroadcastGoal submits the goal to every agent in ids (default: all
// registered agents) in parallel and collects each agent's outcome. One
// agent's failure never aborts the others; errors are reported per agent in
// the returned map. Unknown ids are skipped.
func (s *System) BroadcastGoal(ctx context.Context, goal core.Goal, ids ...string) map[string]BroadcastResult {
	if len(ids) == 0 {
		ids = s.ListAgents()
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]BroadcastResult, len(ids))
	)
	for _, id := range ids {
		a, ok := s.GetAgent(id)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(id string, a *agent.Agent) {
			defer wg.Done()
			res, err := a.HandleGoal(ctx, goal, executor.Options{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[id] = BroadcastResult{Err: err}
				return
			}
			results[id] = BroadcastResult{Result: res}
		}(id, a)
	}
	wg.Wait()

	return results
}
