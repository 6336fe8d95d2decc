package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const stepColumns = `id, run_id, step, category, status, started_at, completed_at,
	duration_ms, artifact_id, error_message, parameters, created_at, updated_at`

// CreateRunStep records a step for a run and returns the stored row.
func (db *DB) CreateRunStep(ctx context.Context, runID uuid.UUID, input *RunStepInput) (*RunStep, error) {
	rows, _ := db.pool.Query(ctx,
		`INSERT INTO run_steps (run_id, step, category, status, parameters)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, step) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		 RETURNING `+stepColumns,
		runID, input.Step, input.Category, input.Status, input.Parameters,
	)
	step, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[RunStep])
	if err != nil {
		return nil, fmt.Errorf("create step %s: %w", input.Step, err)
	}
	return step, nil
}

// GetRunStep returns nil without error when the run has no such step.
func (db *DB) GetRunStep(ctx context.Context, runID uuid.UUID, stepName string) (*RunStep, error) {
	rows, _ := db.pool.Query(ctx,
		`SELECT `+stepColumns+` FROM run_steps WHERE run_id = $1 AND step = $2`, runID, stepName)
	step, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[RunStep])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load step %s: %w", stepName, err)
	}
	return step, nil
}

// ListRunSteps returns the steps of a run in creation order. Nil filters match everything.
func (db *DB) ListRunSteps(ctx context.Context, runID uuid.UUID, status, category *string) ([]RunStep, error) {
	var c conditions
	c.add("run_id = $%d", runID)
	if status != nil {
		c.add("status = $%d", *status)
	}
	if category != nil {
		c.add("category = $%d", *category)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+stepColumns+` FROM run_steps`+c.where()+` ORDER BY created_at`, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	steps, err := pgx.CollectRows(rows, pgx.RowToStructByPos[RunStep])
	if err != nil {
		return nil, fmt.Errorf("scan steps: %w", err)
	}
	return steps, nil
}

// UpdateRunStepStatus moves a step to status. Entering in_progress stamps
// started_at once; a terminal status stamps completed_at and the duration.
func (db *DB) UpdateRunStepStatus(ctx context.Context, runID uuid.UUID, stepName string, status string, errorMsg *string, artifactID *uuid.UUID) error {
	current, err := db.GetRunStep(ctx, runID, stepName)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("step not found: %s", stepName)
	}

	started, completed, duration := stepTimes(current, status, time.Now())
	_, err = db.pool.Exec(ctx,
		`UPDATE run_steps
		 SET status = $3, started_at = COALESCE($4, started_at), completed_at = $5,
		     duration_ms = $6, error_message = $7, artifact_id = COALESCE($8, artifact_id),
		     updated_at = NOW()
		 WHERE run_id = $1 AND step = $2`,
		runID, stepName, status, started, completed, duration, errorMsg, artifactID,
	)
	if err != nil {
		return fmt.Errorf("update step %s: %w", stepName, err)
	}
	return nil
}

// IsTerminalStepStatus reports whether a step in status has finished.
func IsTerminalStepStatus(status string) bool {
	switch status {
	case StepStatusCompleted, StepStatusFailed, StepStatusSkipped:
		return true
	}
	return false
}

func stepTimes(current *RunStep, status string, now time.Time) (started, completed *time.Time, durationMs *int) {
	if status == StepStatusInProgress && current.StartedAt == nil {
		started = &now
	}
	if IsTerminalStepStatus(status) {
		completed = &now
		if current.StartedAt != nil {
			d := int(now.Sub(*current.StartedAt).Milliseconds())
			durationMs = &d
		}
	}
	return started, completed, durationMs
}
