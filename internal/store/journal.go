// Package store keeps an operational audit trail of feed fetches in
// sqlite. Only run metadata is recorded: event data itself is never
// persisted, so nothing here survives as queryable seismic history.
package store

import (
	"database/sql"
	"time"
)

// Journal records fetch runs for diagnostics and the /health endpoint.
type Journal struct {
	db *sql.DB
}

// New wraps an open database handle. Callers run Migrate before use.
func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// FetchRun is one feed fetch attempt.
type FetchRun struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    sql.NullTime
	HTTPStatus    sql.NullInt64
	ResponseBytes sql.NullInt64
	EventsParsed  sql.NullInt64
	Success       bool
	ErrorMessage  sql.NullString
}

// StartRun inserts a new fetch run record and returns it.
func (j *Journal) StartRun() (*FetchRun, error) {
	run := &FetchRun{StartedAt: time.Now().UTC()}

	result, err := j.db.Exec(`
		INSERT INTO fetch_runs (started_at, success) VALUES (?, FALSE)
	`, run.StartedAt)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteRun updates the fetch run with its outcome.
func (j *Journal) CompleteRun(run *FetchRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := j.db.Exec(`
		UPDATE fetch_runs SET
			finished_at = ?,
			http_status = ?,
			response_bytes = ?,
			events_parsed = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.ResponseBytes, run.EventsParsed,
		run.Success, run.ErrorMessage, run.ID)
	return err
}

// RecentErrors returns the most recent failed fetch runs.
func (j *Journal) RecentErrors(limit int) ([]FetchRun, error) {
	rows, err := j.db.Query(`
		SELECT id, started_at, finished_at, http_status, response_bytes,
		       events_parsed, success, error_message
		FROM fetch_runs
		WHERE NOT success AND finished_at IS NOT NULL
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []FetchRun
	for rows.Next() {
		var r FetchRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.HTTPStatus,
			&r.ResponseBytes, &r.EventsParsed, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// HealthSummary aggregates fetch outcomes over the last N days.
type HealthSummary struct {
	TotalRuns   int
	SuccessRuns int
	FailedRuns  int
	TotalEvents int64
}

// GetHealthSummary returns fetch health over the trailing window.
func (j *Journal) GetHealthSummary(days int) (*HealthSummary, error) {
	row := j.db.QueryRow(`
		SELECT
			COUNT(*),
			SUM(CASE WHEN success THEN 1 ELSE 0 END),
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END),
			COALESCE(SUM(events_parsed), 0)
		FROM fetch_runs
		WHERE started_at > datetime('now', '-' || ? || ' days')
	`, days)

	var h HealthSummary
	var success, failed sql.NullInt64
	if err := row.Scan(&h.TotalRuns, &success, &failed, &h.TotalEvents); err != nil {
		return nil, err
	}
	h.SuccessRuns = int(success.Int64)
	h.FailedRuns = int(failed.Int64)
	return &h, nil
}
