// Package runlog persists a ledger of processing runs to SQLite.
//
// One row per input file per invocation: what was processed, with which
// model and template, how many artifacts/units/cases came out, and how it
// ended. The orchestrator treats ledger failures as diagnostics, never as
// processing failures.
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	store, err := runlog.Open("runs.db")
//	id, _ := store.Begin(ctx, "door.reqifz", "llama3.1:8b", "automotive_default")
//	...
//	store.Finish(ctx, id, counts, "door_TCD_llama3_1_8b.csv")
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reqsmith/reqsmith/idgen"
)

// Schema for the runs table.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input TEXT NOT NULL,
	model TEXT NOT NULL,
	template TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK (status IN ('running','completed','failed')),
	artifacts INTEGER NOT NULL DEFAULT 0,
	units INTEGER NOT NULL DEFAULT 0,
	cases INTEGER NOT NULL DEFAULT 0,
	output TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	finished_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Run is one ledger row. Timestamps are Unix milliseconds.
type Run struct {
	ID         string `json:"id"`
	Input      string `json:"input"`
	Model      string `json:"model"`
	Template   string `json:"template"`
	Status     string `json:"status"`
	Artifacts  int    `json:"artifacts"`
	Units      int    `json:"units"`
	Cases      int    `json:"cases"`
	Output     string `json:"output"`
	Error      string `json:"error"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at,omitempty"`
}

// Counts summarizes one run's output volumes.
type Counts struct {
	Artifacts int `json:"artifacts"`
	Units     int `json:"units"`
	Cases     int `json:"cases"`
}

// Store is the ledger handle.
type Store struct {
	DB    *sql.DB
	newID idgen.Generator
}

// Open opens (or creates) the ledger database at path, applies the
// production pragmas and the schema, and creates parent directories.
// The caller must blank-import modernc.org/sqlite.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("runlog: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("runlog: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: exec schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: ping: %w", err)
	}

	return &Store{DB: db, newID: idgen.Prefixed("run_", idgen.UUIDv7())}, nil
}

// OpenMemory opens an in-memory ledger for testing. MaxOpenConns(1) keeps
// every query on the same in-memory database; t.Cleanup closes it.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("runlog.OpenMemory: %v", err)
	}
	s.DB.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Begin inserts a running row and returns its ID.
func (s *Store) Begin(ctx context.Context, input, model, template string) (string, error) {
	id := s.newID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO runs (id, input, model, template, status, started_at)
		 VALUES (?, ?, ?, ?, 'running', ?)`,
		id, input, model, template, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Finish marks a run completed with its output counts and path.
func (s *Store) Finish(ctx context.Context, id string, counts Counts, output string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE runs SET status = 'completed', artifacts = ?, units = ?, cases = ?,
		 output = ?, finished_at = ? WHERE id = ?`,
		counts.Artifacts, counts.Units, counts.Cases, output, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Fail marks a run failed with its error message.
func (s *Store) Fail(ctx context.Context, id string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.DB.ExecContext(ctx,
		`UPDATE runs SET status = 'failed', error = ?, finished_at = ? WHERE id = ?`,
		msg, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, input, model, template, status, artifacts, units, cases,
		        output, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Input, &r.Model, &r.Template, &r.Status,
			&r.Artifacts, &r.Units, &r.Cases, &r.Output, &r.Error,
			&r.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = finished.Int64
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes runs that started before the cutoff and returns how many
// rows went away.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	res, err := s.DB.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
