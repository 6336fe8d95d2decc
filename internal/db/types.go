package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/creator-persona/internal/types"
)

// Run represents a pipeline run record
type Run struct {
	ID                uuid.UUID  `json:"id"`
	Creator           string     `json:"creator"`
	YouTubeHandle     string     `json:"youtube_handle"`
	InstagramUsername string     `json:"instagram_username"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// ArtifactStep constants for run-wide artifacts
const (
	StepMergedInfo = "merged_info"
	StepPersona    = "persona"
	StepReport     = "report"
)

// Per-platform artifact kinds, combined with a platform by PlatformStep.
const (
	KindContentItems = "content_items"
	KindRankedItems  = "ranked_items"
	KindTranscripts  = "transcripts"
	KindCreatorInfo  = "creator_info"
	KindIngestReport = "ingest_report"
)

// PlatformStep names the artifact of kind for platform, e.g. "youtube_ranked_items".
func PlatformStep(platform types.Platform, kind string) string {
	return string(platform) + "_" + kind
}
