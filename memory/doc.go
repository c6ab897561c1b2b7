// Package memory provides implementations of the core.Memory append-only
// per-agent event log: a durable SQLite-backed store for production use and
// a process-local in-memory store for tests and demos. A Redis-backed store
// lives in the redis subpackage.
package memory
