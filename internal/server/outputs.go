package server

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/creator-persona/internal/db"
	"github.com/jonathan/creator-persona/internal/types"
)

// OutputStore reads the typed outputs a run recorded. *db.DB satisfies it.
type OutputStore interface {
	GetCreatorInfoByRunID(ctx context.Context, runID uuid.UUID, platform types.Platform) (*types.ContentCreatorInfo, error)
	GetMergedInfoByRunID(ctx context.Context, runID uuid.UUID) (*types.ContentCreatorInfo, error)
	GetRankedItemsByRunID(ctx context.Context, runID uuid.UUID, platform types.Platform) (*types.RankedItems, error)
	GetTranscriptsByRunID(ctx context.Context, runID uuid.UUID, platform types.Platform) ([]types.TranscriptRecord, error)
	GetTextArtifact(ctx context.Context, runID uuid.UUID, step string) (string, error)
}

// platformParam reads ?platform=. Optional platforms may be absent.
func platformParam(r *http.Request, optional bool) (types.Platform, error) {
	v := r.URL.Query().Get("platform")
	if v == "" && optional {
		return "", nil
	}
	p, err := types.ParsePlatform(v)
	if err != nil {
		return "", &ErrValidation{Field: "platform", Message: err.Error()}
	}
	return p, nil
}

// handleCreatorInfo returns the merged record, or one platform's record with ?platform=.
func (s *Server) handleCreatorInfo(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.loadRun(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	platform, err := platformParam(r, true)
	if err != nil {
		s.fail(w, err)
		return
	}

	var info *types.ContentCreatorInfo
	if platform == "" {
		info, err = s.store.GetMergedInfoByRunID(r.Context(), run.ID)
	} else {
		info, err = s.store.GetCreatorInfoByRunID(r.Context(), run.ID, platform)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	if info == nil {
		s.fail(w, &ErrNotFound{Kind: "creator info", ID: run.ID.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, info)
}

func (s *Server) handleRankedItems(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.loadRun(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	platform, err := platformParam(r, false)
	if err != nil {
		s.fail(w, err)
		return
	}
	ranked, err := s.store.GetRankedItemsByRunID(r.Context(), run.ID, platform)
	if err != nil {
		s.fail(w, err)
		return
	}
	if ranked == nil {
		s.fail(w, &ErrNotFound{Kind: "ranked items", ID: run.ID.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, ranked)
}

func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.loadRun(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	platform, err := platformParam(r, false)
	if err != nil {
		s.fail(w, err)
		return
	}
	records, err := s.store.GetTranscriptsByRunID(r.Context(), run.ID, platform)
	if err != nil {
		s.fail(w, err)
		return
	}
	if records == nil {
		records = []types.TranscriptRecord{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"run_id":      run.ID,
		"platform":    platform,
		"transcripts": records,
		"count":       len(records),
	})
}

// textOutput serves a text artifact of the run with contentType.
func (s *Server) textOutput(step, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireStore(w) {
			return
		}
		run, err := s.loadRun(r)
		if err != nil {
			s.fail(w, err)
			return
		}
		text, err := s.store.GetTextArtifact(r.Context(), run.ID, step)
		if err != nil {
			s.fail(w, err)
			return
		}
		if text == "" {
			s.fail(w, &ErrNotFound{Kind: step, ID: run.ID.String()})
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, text)
	}
}

var (
	_ OutputStore = (*db.DB)(nil)
	_ RunStore    = (*db.DB)(nil)
)
