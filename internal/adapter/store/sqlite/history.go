// Package sqlite records run history in a local SQLite database. The history
// is advisory, for local inspection of how a repository's finding counts
// trend over time; reconciliation state lives exclusively in the tracker's
// issue bodies.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vibecheck/issuesync/internal/usecase/reconcile"
)

// History is an append-only log of synchronization runs.
type History struct {
	db *sql.DB
}

// NewHistory opens (or creates) the history database at dbPath. Use
// ":memory:" for an in-memory database in tests.
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	h := &History{db: db}
	if err := h.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return h, nil
}

func (h *History) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_number INTEGER NOT NULL,
		repository TEXT NOT NULL,
		commit_sha TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		findings INTEGER NOT NULL,
		created INTEGER NOT NULL,
		updated INTEGER NOT NULL,
		closed INTEGER NOT NULL,
		skipped_below_threshold INTEGER NOT NULL,
		skipped_duplicate INTEGER NOT NULL,
		skipped_max_reached INTEGER NOT NULL,
		PRIMARY KEY (repository, run_number)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp DESC);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Run is one recorded synchronization run.
type Run struct {
	RunNumber  int
	Repository string
	Commit     string
	Timestamp  time.Time
	Findings   int
	Stats      reconcile.Stats
}

// Record appends one run to the history. Re-recording the same run number
// for a repository overwrites the earlier row, so a retried CI job does not
// duplicate history.
func (h *History) Record(ctx context.Context, run Run) error {
	query := `
		INSERT OR REPLACE INTO runs (
			run_number, repository, commit_sha, timestamp, findings,
			created, updated, closed,
			skipped_below_threshold, skipped_duplicate, skipped_max_reached
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := h.db.ExecContext(ctx, query,
		run.RunNumber,
		run.Repository,
		run.Commit,
		run.Timestamp.Unix(),
		run.Findings,
		run.Stats.Created,
		run.Stats.Updated,
		run.Stats.Closed,
		run.Stats.SkippedBelowThreshold,
		run.Stats.SkippedDuplicate,
		run.Stats.SkippedMaxReached,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs for the repository, newest first.
func (h *History) Recent(ctx context.Context, repository string, limit int) ([]Run, error) {
	query := `
		SELECT run_number, repository, commit_sha, timestamp, findings,
			created, updated, closed,
			skipped_below_threshold, skipped_duplicate, skipped_max_reached
		FROM runs
		WHERE repository = ?
		ORDER BY run_number DESC
		LIMIT ?
	`
	rows, err := h.db.QueryContext(ctx, query, repository, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var ts int64
		if err := rows.Scan(
			&run.RunNumber, &run.Repository, &run.Commit, &ts, &run.Findings,
			&run.Stats.Created, &run.Stats.Updated, &run.Stats.Closed,
			&run.Stats.SkippedBelowThreshold, &run.Stats.SkippedDuplicate, &run.Stats.SkippedMaxReached,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Timestamp = time.Unix(ts, 0).UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}
