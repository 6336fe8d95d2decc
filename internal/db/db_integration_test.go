package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/creator-persona/internal/types"
)

// setupTestDB connects to DATABASE_URL and applies the schema.
// Skipped if DATABASE_URL is not set or connection fails
func setupTestDB(t *testing.T) *DB {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestRunLifecycle_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	runID, err := db.CreateRun(ctx, "Jane Doe", "@janedoe", "jane.doe")
	require.NoError(t, err)
	defer func() { _ = db.DeleteRun(ctx, runID) }()

	info := types.NewDefaultCreatorInfo()
	info.FirstName = "Jane"
	require.NoError(t, db.SaveArtifact(ctx, runID, PlatformStep(types.PlatformYouTube, KindCreatorInfo), string(types.PlatformYouTube), info))
	require.NoError(t, db.SaveTextArtifact(ctx, runID, StepPersona, "synthesis", "I'm Jane."))

	got, err := db.GetCreatorInfoByRunID(ctx, runID, types.PlatformYouTube)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Jane", got.FirstName)

	missing, err := db.GetCreatorInfoByRunID(ctx, runID, types.PlatformInstagram)
	require.NoError(t, err)
	assert.Nil(t, missing)

	text, err := db.GetTextArtifact(ctx, runID, StepPersona)
	require.NoError(t, err)
	assert.Equal(t, "I'm Jane.", text)

	require.NoError(t, db.CompleteRun(ctx, runID, RunStatusCompleted))
	run, err := db.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.NotNil(t, run.CompletedAt)

	summaries, err := db.ListArtifacts(ctx, ArtifactFilters{RunID: runID})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestRunSteps_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	runID, err := db.CreateRun(ctx, "Jane Doe", "@janedoe", "")
	require.NoError(t, err)
	defer func() { _ = db.DeleteRun(ctx, runID) }()

	_, err = db.CreateRunStep(ctx, runID, &RunStepInput{Step: "youtube_fetch", Category: StepCategoryCollection, Status: StepStatusPending})
	require.NoError(t, err)
	require.NoError(t, db.UpdateRunStepStatus(ctx, runID, "youtube_fetch", StepStatusInProgress, nil, nil))
	require.NoError(t, db.UpdateRunStepStatus(ctx, runID, "youtube_fetch", StepStatusCompleted, nil, nil))

	step, err := db.GetRunStep(ctx, runID, "youtube_fetch")
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, StepStatusCompleted, step.Status)
	assert.NotNil(t, step.DurationMs)
}

func TestTypedArtifacts_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	runID, err := db.CreateRun(ctx, "Jane Doe", "", "jane.doe")
	require.NoError(t, err)
	defer func() { _ = db.DeleteRun(ctx, runID) }()

	ranked := types.RankedItems{Platform: types.PlatformInstagram, Creator: "Jane Doe", Items: []types.RankedItem{
		{ContentItem: types.ContentItem{ID: "p1", Platform: types.PlatformInstagram}, RelevanceScore: 75},
	}}
	require.NoError(t, db.SaveArtifact(ctx, runID, PlatformStep(types.PlatformInstagram, KindRankedItems), "collection", ranked))
	require.NoError(t, db.SaveArtifact(ctx, runID, PlatformStep(types.PlatformInstagram, KindTranscripts), "ingestion",
		[]types.TranscriptRecord{{SourceItemID: "p1", Text: "morning routine"}}))

	merged := types.NewDefaultCreatorInfo()
	merged.LastName = "Doe"
	require.NoError(t, db.SaveArtifact(ctx, runID, StepMergedInfo, "synthesis", merged))

	gotRanked, err := db.GetRankedItemsByRunID(ctx, runID, types.PlatformInstagram)
	require.NoError(t, err)
	require.NotNil(t, gotRanked)
	assert.Equal(t, "p1", gotRanked.Items[0].ID)

	transcripts, err := db.GetTranscriptsByRunID(ctx, runID, types.PlatformInstagram)
	require.NoError(t, err)
	require.Len(t, transcripts, 1)
	assert.Equal(t, "morning routine", transcripts[0].Text)

	gotMerged, err := db.GetMergedInfoByRunID(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, gotMerged)
	assert.Equal(t, "Doe", gotMerged.LastName)

	err = db.DeleteRun(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}
