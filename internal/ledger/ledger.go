// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records acquisition runs and per-record outcomes in a
// SQLite database so operators can see what has been fetched, what was
// skipped and what keeps failing across runs.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// DefaultPath is the ledger location when none is configured. It lives
// outside the artifact tree, which only the artifact writer touches.
const DefaultPath = ".paper-harvest/ledger.db"

// Ledger owns the ledger database. RecordOutcome attaches outcomes to the
// run opened by BeginRun.
type Ledger struct {
	db    *sql.DB
	runID string
	now   func() time.Time
}

// Open opens or creates the ledger at path and ensures the schema.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db, now: time.Now}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			records INTEGER NOT NULL DEFAULT 0,
			downloaded INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			exhausted INTEGER NOT NULL DEFAULT 0,
			ineligible INTEGER NOT NULL DEFAULT 0,
			stopped INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			record_key TEXT PRIMARY KEY,
			run_id TEXT REFERENCES runs(id),
			conference TEXT NOT NULL,
			year INTEGER NOT NULL,
			identifier TEXT NOT NULL,
			status TEXT NOT NULL,
			mirror TEXT,
			attempts INTEGER NOT NULL DEFAULT 0,
			path TEXT,
			pages INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_venue ON outcomes(conference, year)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun opens a new run and returns its id. records is the size of the
// batch about to be processed.
func (l *Ledger) BeginRun(ctx context.Context, records int) (string, error) {
	id := uuid.NewString()
	query, args, err := sq.Insert("runs").
		Columns("id", "started_at", "records").
		Values(id, l.now().UTC().Format(time.RFC3339), records).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	l.runID = id
	return id, nil
}

// RunTotals are the counters stored when a run finishes.
type RunTotals struct {
	Downloaded int
	Skipped    int
	Exhausted  int
	Ineligible int
	Stopped    bool
}

// FinishRun stamps the run with its end time and totals.
func (l *Ledger) FinishRun(ctx context.Context, runID string, t RunTotals) error {
	query, args, err := sq.Update("runs").
		Set("finished_at", l.now().UTC().Format(time.RFC3339)).
		Set("downloaded", t.Downloaded).
		Set("skipped", t.Skipped).
		Set("exhausted", t.Exhausted).
		Set("ineligible", t.Ineligible).
		Set("stopped", t.Stopped).
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// RecordOutcome stores the latest outcome for a record, replacing any
// earlier one. A skip never overwrites the details of an earlier
// download of the same record.
func (l *Ledger) RecordOutcome(ctx context.Context, o types.AcquisitionOutcome) error {
	var runID any
	if l.runID != "" {
		runID = l.runID
	}
	query, args, err := sq.Insert("outcomes").
		Columns("record_key", "run_id", "conference", "year", "identifier", "status",
			"mirror", "attempts", "path", "pages", "last_error", "updated_at").
		Values(o.RecordKey, runID, string(o.Conference), o.Year, o.Identifier, string(o.Status),
			o.Mirror, o.Attempts, o.Path, o.Pages, o.LastError, l.now().UTC().Format(time.RFC3339)).
		Suffix(`ON CONFLICT(record_key) DO UPDATE SET
			run_id = excluded.run_id,
			updated_at = excluded.updated_at,
			path = excluded.path,
			status = CASE WHEN excluded.status = 'skipped' AND outcomes.status = 'downloaded'
				THEN outcomes.status ELSE excluded.status END,
			identifier = excluded.identifier,
			mirror = CASE WHEN excluded.status = 'skipped' THEN outcomes.mirror ELSE excluded.mirror END,
			attempts = CASE WHEN excluded.status = 'skipped' THEN outcomes.attempts ELSE excluded.attempts END,
			pages = CASE WHEN excluded.status = 'skipped' THEN outcomes.pages ELSE excluded.pages END,
			last_error = CASE WHEN excluded.status = 'skipped' THEN outcomes.last_error ELSE excluded.last_error END`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("recording outcome for %s: %w", o.RecordKey, err)
	}
	return nil
}
