package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/goalmesh/core"
)

// SQLiteStore is a durable core.Memory backed by a per-agent SQLite file.
// Records are append-only; Query and Dump return newest-first. Use the path
// ":memory:" for an ephemeral database in tests.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if necessary) the database at path and
// initializes the schema. The parent directory is created for file-backed
// databases.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "memory.db"
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create memory directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	if path != ":memory:" {
		// WAL mode for better concurrent read/write behavior
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		ts INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_key ON memories(key);
	CREATE INDEX IF NOT EXISTS idx_memories_ts ON memories(ts);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize memory schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Add implements core.Memory.
func (s *SQLiteStore) Add(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode memory value: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO memories (key, value, ts) VALUES (?, ?, ?)",
		key, string(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append memory record: %w", err)
	}
	return nil
}

// Query implements core.Memory. Keys containing '%' are used as LIKE
// patterns; keys ending in '_' match as a prefix; anything else matches
// exactly.
func (s *SQLiteStore) Query(key string) ([]core.Record, error) {
	query := "SELECT key, value, ts FROM memories WHERE key = ? ORDER BY ts DESC, id DESC"
	arg := key
	switch {
	case strings.ContainsRune(key, '%'):
		query = "SELECT key, value, ts FROM memories WHERE key LIKE ? ORDER BY ts DESC, id DESC"
	case strings.HasSuffix(key, "_"):
		query = "SELECT key, value, ts FROM memories WHERE key LIKE ? ORDER BY ts DESC, id DESC"
		arg = key + "%"
	}

	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Dump implements core.Memory.
func (s *SQLiteStore) Dump() ([]core.Record, error) {
	rows, err := s.db.Query("SELECT key, value, ts FROM memories ORDER BY ts DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to dump memory: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]core.Record, error) {
	var records []core.Record
	for rows.Next() {
		var (
			key  string
			raw  string
			tsMS int64
		)
		if err := rows.Scan(&key, &raw, &tsMS); err != nil {
			return nil, fmt.Errorf("failed to scan memory record: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("failed to decode memory value: %w", err)
		}
		records = append(records, core.Record{
			Key:   key,
			Value: value,
			TS:    time.UnixMilli(tsMS),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read memory records: %w", err)
	}
	return records, nil
}
