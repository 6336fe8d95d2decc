package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jonathan/creator-persona/internal/instagram"
	"github.com/jonathan/creator-persona/internal/types"
	"github.com/jonathan/creator-persona/internal/vectorstore"
)

// Metadata keys added to every stored document.
const (
	MetaContentHash = "content_hash"
	MetaIngestedAt  = "ingested_at"
	MetaDataType    = "data_type"
)

// NewDocument builds the store document for a transcript. The ID is stable
// per platform and item so a re-ingest overwrites rather than duplicates in
// stores that upsert.
func NewDocument(platform types.Platform, record types.TranscriptRecord, now time.Time) vectorstore.Document {
	text := CleanText(record.Text)

	meta := make(map[string]any, len(record.Metadata)+3)
	for k, v := range record.Metadata {
		meta[k] = v
	}
	dataType := dataTypeOf(record)
	meta[MetaContentHash] = computeHash(text)
	meta[MetaIngestedAt] = now.UTC().Format(time.RFC3339)
	meta[MetaDataType] = string(dataType)
	if record.Confidence != nil {
		meta["confidence"] = *record.Confidence
	}
	if record.Duration != nil {
		meta["duration"] = *record.Duration
	}

	return vectorstore.Document{
		ID:       string(platform) + ":" + record.SourceItemID,
		Content:  text,
		DataType: dataType,
		Metadata: meta,
	}
}

// dataTypeOf reports whether the text came from speech-to-text.
func dataTypeOf(record types.TranscriptRecord) vectorstore.DataType {
	switch record.Metadata["strategy"] {
	case instagram.StrategyDirectURL, instagram.StrategyDownload:
		return vectorstore.DataTypeAudio
	default:
		return vectorstore.DataTypeText
	}
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
