// Package history persists plan run outcomes in a local sqlite database.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Run is one recorded plan run.
type Run struct {
	ID        string
	CallerKey string
	Transport string
	Steps     int
	Completed int
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// StepRecord is one recorded step outcome within a run.
type StepRecord struct {
	RunID       string
	Index       int
	Endpoint    string
	Method      string
	EngineError string
	TxID        string
	Timestamp   uint64
}

// Store wraps the sqlite database holding run history.
type Store struct {
	db *sql.DB
}

// Open opens the history database at path, creating the schema when
// needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			caller_key TEXT,
			transport TEXT,
			steps INTEGER,
			completed INTEGER,
			error TEXT,
			started_at INTEGER,
			ended_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS run_steps (
			run_id TEXT,
			idx INTEGER,
			endpoint TEXT,
			method TEXT,
			engine_error TEXT,
			tx_id TEXT,
			ts INTEGER,
			PRIMARY KEY (run_id, idx)
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create history schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts or replaces the run row. Runs are recorded once at the
// end of a run, after their step records.
func (s *Store) RecordRun(run Run) error {
	query := `INSERT OR REPLACE INTO runs
		(id, caller_key, transport, steps, completed, error, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query,
		run.ID, run.CallerKey, run.Transport, run.Steps, run.Completed,
		run.Error, run.StartedAt.UnixMilli(), run.EndedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecordStep appends one step outcome to a run.
func (s *Store) RecordStep(rec StepRecord) error {
	query := `INSERT OR REPLACE INTO run_steps
		(run_id, idx, endpoint, method, engine_error, tx_id, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query,
		rec.RunID, rec.Index, rec.Endpoint, rec.Method,
		rec.EngineError, rec.TxID, int64(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// RecentRuns lists the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	query := `SELECT id, caller_key, transport, steps, completed, error, started_at, ended_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, ended int64
		if err := rows.Scan(&r.ID, &r.CallerKey, &r.Transport, &r.Steps,
			&r.Completed, &r.Error, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.EndedAt = time.UnixMilli(ended)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunSteps lists the recorded steps of one run in execution order.
func (s *Store) RunSteps(runID string) ([]StepRecord, error) {
	query := `SELECT run_id, idx, endpoint, method, engine_error, tx_id, ts
		FROM run_steps WHERE run_id = ? ORDER BY idx`
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("list run steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		var ts int64
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.Endpoint,
			&rec.Method, &rec.EngineError, &rec.TxID, &ts); err != nil {
			return nil, fmt.Errorf("scan run step: %w", err)
		}
		rec.Timestamp = uint64(ts)
		steps = append(steps, rec)
	}
	return steps, rows.Err()
}
