package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/creator-persona/internal/types"
)

// Artifact is one stored step output. Content holds decoded JSON; TextContent
// holds rendered text such as the report.
type Artifact struct {
	ID          uuid.UUID `json:"id"`
	RunID       uuid.UUID `json:"run_id"`
	Step        string    `json:"step"`
	Category    string    `json:"category"`
	Content     any       `json:"content,omitempty"`
	TextContent string    `json:"text_content,omitempty"`
}

// ArtifactSummary describes an artifact without its body.
type ArtifactSummary struct {
	ID        uuid.UUID `json:"id"`
	Step      string    `json:"step"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	HasJSON   bool      `json:"has_json"`
	HasText   bool      `json:"has_text"`
}

// ArtifactFilters narrows ListArtifacts. Zero values match everything.
type ArtifactFilters struct {
	RunID    uuid.UUID
	Step     string
	Category string
}

// SaveArtifact stores content as JSON, replacing an earlier artifact of the same step.
func (db *DB) SaveArtifact(ctx context.Context, runID uuid.UUID, step, category string, content any) error {
	body, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", step, err)
	}
	return db.upsertArtifact(ctx, "content", runID, step, category, body)
}

// SaveTextArtifact stores text, replacing an earlier artifact of the same step.
func (db *DB) SaveTextArtifact(ctx context.Context, runID uuid.UUID, step, category, text string) error {
	return db.upsertArtifact(ctx, "text_content", runID, step, category, text)
}

// column is always one of the two literal body columns.
func (db *DB) upsertArtifact(ctx context.Context, column string, runID uuid.UUID, step, category string, value any) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO artifacts (run_id, step, category, `+column+`) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, step)
		 DO UPDATE SET category = EXCLUDED.category, `+column+` = EXCLUDED.`+column+`, created_at = NOW()`,
		runID, step, category, value,
	)
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", step, err)
	}
	return nil
}

// GetArtifact returns the raw JSON of a step, or nil when there is none.
func (db *DB) GetArtifact(ctx context.Context, runID uuid.UUID, step string) ([]byte, error) {
	var body []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM artifacts WHERE run_id = $1 AND step = $2`, runID, step,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", step, err)
	}
	return body, nil
}

// GetTextArtifact returns the text of a step, or "" when there is none.
func (db *DB) GetTextArtifact(ctx context.Context, runID uuid.UUID, step string) (string, error) {
	var text *string
	err := db.pool.QueryRow(ctx,
		`SELECT text_content FROM artifacts WHERE run_id = $1 AND step = $2`, runID, step,
	).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && text == nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load text artifact %s: %w", step, err)
	}
	return *text, nil
}

// GetArtifactByID returns nil without error when the artifact does not exist.
func (db *DB) GetArtifactByID(ctx context.Context, artifactID uuid.UUID) (*Artifact, error) {
	rows, _ := db.pool.Query(ctx,
		`SELECT id, run_id, step, COALESCE(category, ''), content, COALESCE(text_content, '')
		 FROM artifacts WHERE id = $1`, artifactID)
	artifact, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[Artifact])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", artifactID, err)
	}
	return artifact, nil
}

// ListArtifacts returns matching artifact summaries in the order they were written.
func (db *DB) ListArtifacts(ctx context.Context, filters ArtifactFilters) ([]ArtifactSummary, error) {
	var c conditions
	if filters.RunID != uuid.Nil {
		c.add("run_id = $%d", filters.RunID)
	}
	if filters.Step != "" {
		c.add("step = $%d", filters.Step)
	}
	if filters.Category != "" {
		c.add("category = $%d", filters.Category)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, step, COALESCE(category, ''), created_at, content IS NOT NULL, text_content IS NOT NULL
		 FROM artifacts`+c.where()+` ORDER BY created_at`, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[ArtifactSummary])
	if err != nil {
		return nil, fmt.Errorf("scan artifacts: %w", err)
	}
	return summaries, nil
}

// GetRankedItemsByRunID loads the ranked items of platform for a run
func (db *DB) GetRankedItemsByRunID(ctx context.Context, runID uuid.UUID, platform types.Platform) (*types.RankedItems, error) {
	var items types.RankedItems
	found, err := db.getJSON(ctx, runID, PlatformStep(platform, KindRankedItems), &items)
	if err != nil || !found {
		return nil, err
	}
	return &items, nil
}

// GetCreatorInfoByRunID loads the record extracted for platform
func (db *DB) GetCreatorInfoByRunID(ctx context.Context, runID uuid.UUID, platform types.Platform) (*types.ContentCreatorInfo, error) {
	return db.getCreatorInfo(ctx, runID, PlatformStep(platform, KindCreatorInfo))
}

// GetMergedInfoByRunID loads the merged record for a run
func (db *DB) GetMergedInfoByRunID(ctx context.Context, runID uuid.UUID) (*types.ContentCreatorInfo, error) {
	return db.getCreatorInfo(ctx, runID, StepMergedInfo)
}

// GetTranscriptsByRunID loads the ingested transcripts of platform for a run
func (db *DB) GetTranscriptsByRunID(ctx context.Context, runID uuid.UUID, platform types.Platform) ([]types.TranscriptRecord, error) {
	var records []types.TranscriptRecord
	if _, err := db.getJSON(ctx, runID, PlatformStep(platform, KindTranscripts), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (db *DB) getCreatorInfo(ctx context.Context, runID uuid.UUID, step string) (*types.ContentCreatorInfo, error) {
	var info types.ContentCreatorInfo
	found, err := db.getJSON(ctx, runID, step, &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

// getJSON decodes an artifact into dest, reporting false when it does not exist.
func (db *DB) getJSON(ctx context.Context, runID uuid.UUID, step string, dest any) (bool, error) {
	body, err := db.GetArtifact(ctx, runID, step)
	if err != nil || body == nil {
		return false, err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return false, fmt.Errorf("decode artifact %s: %w", step, err)
	}
	return true, nil
}
