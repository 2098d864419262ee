// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlog persists a journal of sync invocations in SQLite: one row
// per run plus its per-document outcomes. The journal is observability
// only — the sync itself carries no state between invocations.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/kb-sync/pkg/types"
)

// Store manages the run-journal SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database at path, creating the schema
// and any missing parent directory.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			state TEXT NOT NULL,
			total INTEGER NOT NULL,
			created INTEGER NOT NULL,
			updated INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			document_id TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record writes one finished run and its outcomes, returning the run id.
func (s *Store) Record(ctx context.Context, rec types.RunRecord, outcomes []types.UpsertOutcome) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, state, total, created, updated, failed, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(rec.State),
		rec.Summary.Total, rec.Summary.Created, rec.Summary.Updated, rec.Summary.Failed,
		rec.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for _, o := range outcomes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outcomes (run_id, document_id, status, error) VALUES (?, ?, ?, ?)`,
			runID, o.DocumentID, string(o.Status), o.Error,
		); err != nil {
			return 0, fmt.Errorf("inserting outcome for %s: %w", o.DocumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, state, total, created, updated, failed, error
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var records []types.RunRecord
	for rows.Next() {
		var rec types.RunRecord
		var started, finished, state string
		if err := rows.Scan(&rec.ID, &started, &finished, &state,
			&rec.Summary.Total, &rec.Summary.Created, &rec.Summary.Updated, &rec.Summary.Failed,
			&rec.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.State = types.RunState(state)
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Outcomes returns the per-document outcomes for one run, in insertion order.
func (s *Store) Outcomes(ctx context.Context, runID int64) ([]types.UpsertOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, status, error FROM outcomes WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []types.UpsertOutcome
	for rows.Next() {
		var o types.UpsertOutcome
		var status string
		if err := rows.Scan(&o.DocumentID, &status, &o.Error); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Status = types.UpsertStatus(status)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
