package core

import (
	"strings"
	"time"
)

// Record is one append-only memory entry. Value holds the decoded JSON
// payload that was stored (maps, slices, strings, numbers).
type Record struct {
	Key   string    `json:"key"`
	Value any       `json:"value"`
	TS    time.Time `json:"ts"`
}

// Memory is an agent's private, append-only event log. A given key may have
// any number of records; nothing in the pipeline updates or deletes them.
//
// Query supports exact keys and patterns: a key containing '%' is treated as
// a wildcard pattern, and a key ending in '_' is treated as a prefix (the
// planner reads "goal_", the executor writes "last_result_<type>"). Query and
// Dump return records newest-first.
//
// Implementations must be safe for concurrent use; memory is the only
// resource shared across concurrent goals and steps for one agent.
type Memory interface {
	// Add appends a record for key with the current instant. Value must be
	// JSON-serializable. Errors indicate storage I/O failure and are fatal
	// to the caller; the pipeline never retries memory writes.
	Add(key string, value any) error

	// Query returns all records matching the key or pattern, newest-first.
	Query(key string) ([]Record, error)

	// Dump returns every record, newest-first.
	Dump() ([]Record, error)
}

// IsPattern reports whether a query key should be treated as a pattern
// rather than an exact match.
func IsPattern(key string) bool {
	return strings.ContainsRune(key, '%') || strings.HasSuffix(key, "_")
}

// MatchKey reports whether a stored key matches a query pattern. A '%'
// splits the pattern into a required prefix and suffix; a trailing '_'
// makes the whole pattern a prefix.
func MatchKey(stored, pattern string) bool {
	if i := strings.IndexByte(pattern, '%'); i >= 0 {
		prefix, suffix := pattern[:i], pattern[i+1:]
		return len(stored) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(stored, prefix) &&
			strings.HasSuffix(stored, suffix)
	}
	if strings.HasSuffix(pattern, "_") {
		return strings.HasPrefix(stored, pattern)
	}
	return stored == pattern
}
