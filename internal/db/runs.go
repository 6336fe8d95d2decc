package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const runColumns = `id, creator, youtube_handle, instagram_username, status, created_at, completed_at`

// ErrRunNotFound is returned by DeleteRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// CreateRun records a new run in the running state.
func (db *DB) CreateRun(ctx context.Context, creator, youtubeHandle, instagramUsername string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (creator, youtube_handle, instagram_username, status)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		creator, youtubeHandle, instagramUsername, RunStatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// CompleteRun stores the final status of a run and stamps completed_at.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	if _, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $2, completed_at = NOW() WHERE id = $1`,
		runID, status,
	); err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// GetRun returns nil without error when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	rows, _ := db.pool.Query(ctx, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = $1`, runID)
	run, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[Run])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return run, nil
}

// RunFilters narrows ListRunsFiltered. Creator is a case-insensitive substring.
type RunFilters struct {
	Creator string
	Status  string
	Limit   int
}

// ListRunsFiltered returns matching runs, newest first.
func (db *DB) ListRunsFiltered(ctx context.Context, filters RunFilters) ([]Run, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	var c conditions
	if filters.Creator != "" {
		c.add("creator ILIKE $%d", "%"+filters.Creator+"%")
	}
	if filters.Status != "" {
		c.add("status = $%d", filters.Status)
	}
	query := `SELECT ` + runColumns + ` FROM pipeline_runs` + c.where() +
		` ORDER BY created_at DESC LIMIT ` + c.arg(limit)

	rows, err := db.pool.Query(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Run])
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run; its artifacts and steps go with it.
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM pipeline_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
