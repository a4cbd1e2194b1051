// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// Filter narrows Query and Counts. Zero fields match everything.
type Filter struct {
	Conference types.Conference
	Year       int
	Status     types.OutcomeStatus
	Limit      int
}

func (f Filter) apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.Conference != "" {
		b = b.Where(sq.Eq{"conference": string(f.Conference)})
	}
	if f.Year > 0 {
		b = b.Where(sq.Eq{"year": f.Year})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": string(f.Status)})
	}
	return b
}

// Query returns stored outcomes ordered by venue, year and key.
func (l *Ledger) Query(ctx context.Context, f Filter) ([]types.AcquisitionOutcome, error) {
	b := f.apply(sq.Select("record_key", "conference", "year", "identifier", "status",
		"mirror", "attempts", "path", "pages", "last_error").
		From("outcomes").
		OrderBy("conference", "year", "record_key"))
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var out []types.AcquisitionOutcome
	for rows.Next() {
		var (
			o                       types.AcquisitionOutcome
			conf, status            string
			mirror, path, lastError sql.NullString
		)
		if err := rows.Scan(&o.RecordKey, &conf, &o.Year, &o.Identifier, &status,
			&mirror, &o.Attempts, &path, &o.Pages, &lastError); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		o.Conference = types.Conference(conf)
		o.Status = types.OutcomeStatus(status)
		o.Mirror = mirror.String
		o.Path = path.String
		o.LastError = lastError.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// Counts returns the number of stored outcomes per status.
func (l *Ledger) Counts(ctx context.Context, f Filter) (map[types.OutcomeStatus]int, error) {
	f.Status = ""
	query, args, err := f.apply(sq.Select("status", "COUNT(*)").From("outcomes").GroupBy("status")).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.OutcomeStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		counts[types.OutcomeStatus(status)] = n
	}
	return counts, rows.Err()
}

// Run is one stored acquisition run.
type Run struct {
	ID         string     `json:"id" yaml:"id"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Records    int        `json:"records" yaml:"records"`
	Downloaded int        `json:"downloaded" yaml:"downloaded"`
	Skipped    int        `json:"skipped" yaml:"skipped"`
	Exhausted  int        `json:"exhausted" yaml:"exhausted"`
	Ineligible int        `json:"ineligible" yaml:"ineligible"`
	Stopped    bool       `json:"stopped" yaml:"stopped"`
}

// Runs returns the most recent runs first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	b := sq.Select("id", "started_at", "finished_at", "records", "downloaded",
		"skipped", "exhausted", "ineligible", "stopped").
		From("runs").
		OrderBy("started_at DESC", "rowid DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Records, &r.Downloaded,
			&r.Skipped, &r.Exhausted, &r.Ineligible, &r.Stopped); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished.Valid {
			t, err := time.Parse(time.RFC3339, finished.String)
			if err == nil {
				r.FinishedAt = &t
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
