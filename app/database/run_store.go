package database

import (
	"context"
	"database/sql"
	"fmt"
)

var _ RunRepository = (*RunStore)(nil)

type RunStore struct {
	db *DB
}

func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) CreateRun(ctx context.Context, run Run) error {
	var since sql.NullString
	if run.Since != nil {
		since = nullString(formatTime(*run.Since))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (id, triggered_by, dry_run, since, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.TriggeredBy, boolInt(run.DryRun), since, formatTime(run.StartedAt), string(RunRunning))
	if err != nil {
		return fmt.Errorf("failed to create ingestion run: %w", err)
	}
	return nil
}

func (s *RunStore) FinishRun(ctx context.Context, run Run) error {
	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = nullString(formatTime(*run.FinishedAt))
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_runs
		SET finished_at = ?, status = ?, items_fetched = ?, items_processed = ?,
		    items_failed = ?, sources_failed = ?, error = ?
		WHERE id = ?
	`, finished, string(run.Status), run.ItemsFetched, run.ItemsProcessed,
		run.ItemsFailed, run.SourcesFailed, nullString(run.Error), run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish ingestion run: %w", err)
	}
	return nil
}

func (s *RunStore) ListRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, triggered_by, dry_run, since, started_at, finished_at, status,
		       items_fetched, items_processed, items_failed, sources_failed, COALESCE(error, '')
		FROM ingestion_runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run             Run
			status, started string
			since, finished sql.NullString
		)
		err := rows.Scan(&run.ID, &run.TriggeredBy, &run.DryRun, &since, &started, &finished, &status,
			&run.ItemsFetched, &run.ItemsProcessed, &run.ItemsFailed, &run.SourcesFailed, &run.Error)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingestion run: %w", err)
		}

		run.Status = RunStatus(status)
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if since.Valid {
			t, err := parseTime(since.String)
			if err != nil {
				return nil, err
			}
			run.Since = &t
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, err
			}
			run.FinishedAt = &t
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingestion runs: %w", err)
	}
	return runs, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
