// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps the run history in a SQLite database: one row
// per dispatch, inserted when the run starts and updated when it
// finishes.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "runs.db"

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Run is one dispatch record.
type Run struct {
	ID        string
	Direction string
	Platform  string
	Source    string
	Output    string

	// Stage is the last stage the run reached.
	Stage string

	Status Status
	Error  string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at dir/runs.db, creating the
// schema on first use.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		direction TEXT NOT NULL,
		platform TEXT NOT NULL,
		source TEXT NOT NULL,
		output TEXT,
		stage TEXT,
		status TEXT NOT NULL,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// Begin records a freshly started run.
func (s *Store) Begin(run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run has no id")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, direction, platform, source, output, stage, status, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, '', ?)`,
		run.ID, run.Direction, run.Platform, run.Source, run.Output, run.Stage,
		StatusRunning, run.StartedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// Finish marks a run done or failed, recording the stage it reached,
// the output artifact, and the error text if any.
func (s *Store) Finish(id, stage, output string, status Status, errText string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET stage = ?, output = ?, status = ?, error = ?, finished_at = ? WHERE id = ?`,
		stage, output, status, errText, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// List returns the most recent runs, newest first. limit <= 0 means a
// default of 20.
func (s *Store) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, direction, platform, source, output, stage, status, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &r.Direction, &r.Platform, &r.Source, &r.Output,
			&r.Stage, &r.Status, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished.Valid && finished.String != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339, finished.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(id string) (*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, direction, platform, source, output, stage, status, error, started_at, finished_at
		 FROM runs WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("run %s not found", id)
	}
	var r Run
	var started string
	var finished sql.NullString
	if err := rows.Scan(&r.ID, &r.Direction, &r.Platform, &r.Source, &r.Output,
		&r.Stage, &r.Status, &r.Error, &started, &finished); err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339, started)
	if finished.Valid && finished.String != "" {
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished.String)
	}
	return &r, nil
}
