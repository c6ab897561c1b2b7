package memory

import (
	"sync"
	"time"

	"github.com/hupe1980/goalmesh/core"
)

// InMemoryStore is a process-local core.Memory. It keeps records in append
// order and serves queries newest-first. Suitable for tests and demos; use
// SQLiteStore (or the redis subpackage) when agent state must survive a
// restart.
//
// Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []core.Record
}

// NewInMemoryStore creates an empty in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Add implements core.Memory.
func (m *InMemoryStore) Add(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, core.Record{Key: key, Value: value, TS: time.Now()})
	return nil
}

// Query implements core.Memory. Pattern semantics follow core.MatchKey.
func (m *InMemoryStore) Query(key string) ([]core.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.Record
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if core.IsPattern(key) {
			if core.MatchKey(r.Key, key) {
				out = append(out, r)
			}
		} else if r.Key == key {
			out = append(out, r)
		}
	}
	return out, nil
}

// Dump implements core.Memory.
func (m *InMemoryStore) Dump() ([]core.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Record, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}
