package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/creator-persona/internal/db"
	"github.com/jonathan/creator-persona/internal/merge"
	"github.com/jonathan/creator-persona/internal/parsing"
	"github.com/jonathan/creator-persona/internal/pipeline"
	"github.com/jonathan/creator-persona/internal/pipeline/steps"
	"github.com/jonathan/creator-persona/internal/report"
	"github.com/jonathan/creator-persona/internal/types"
)

const maxBodyBytes = 1 << 20

// RunRequest is the body of POST /runs/stream.
type RunRequest struct {
	Creator           string `json:"creator" validate:"required,max=200"`
	YouTubeHandle     string `json:"youtube_handle,omitempty" validate:"required_without=InstagramUsername,max=100"`
	InstagramUsername string `json:"instagram_username,omitempty" validate:"max=100"`
	MaxFetch          int    `json:"max_fetch,omitempty" validate:"omitempty,min=1,max=1000"`
	TopK              int    `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
	Parallel          bool   `json:"parallel,omitempty"`
	SkipReset         bool   `json:"skip_reset,omitempty"`
}

// MergeRequest is the body of POST /merge.
type MergeRequest struct {
	Records []json.RawMessage `json:"records" validate:"required,min=1,max=10"`
}

// MergeResponse is the response of POST /merge.
type MergeResponse struct {
	Merged *types.ContentCreatorInfo `json:"merged"`
	Report string                    `json:"report,omitempty"`
}

// RunStepsResponse is the response of GET /runs/{id}/steps.
type RunStepsResponse struct {
	RunID     string       `json:"run_id"`
	Steps     []db.RunStep `json:"steps"`
	Available []string     `json:"available"`
	Blocked   []string     `json:"blocked"`
	// Order lists every known step in dependency order.
	Order []string `json:"order"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": s.store != nil,
		"runs":     s.run != nil,
		"events":   s.broker != nil,
	})
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return &ErrValidation{Message: "invalid request body: " + err.Error()}
	}
	if err := s.validator.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}

	records := make([]*types.ContentCreatorInfo, 0, len(req.Records))
	for i, raw := range req.Records {
		info, err := parsing.ParseCreatorInfo(raw)
		if err != nil {
			s.fail(w, &ErrValidation{Field: fmt.Sprintf("records[%d]", i), Message: err.Error()})
			return
		}
		records = append(records, info)
	}

	merged := merge.MergeAll(records...)
	resp := MergeResponse{Merged: merged}
	if r.URL.Query().Get("report") == "true" {
		resp.Report = report.RenderMarkdown(merged)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, &ErrValidation{Message: "failed to read body"})
		return
	}
	info, err := parsing.ParseCreatorInfo(body)
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, report.RenderMarkdown(info))
}

func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	if s.run == nil {
		s.fail(w, &ErrUnavailable{Feature: "pipeline execution"})
		return
	}
	var req RunRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	onProgress := func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.logger.Debug("progress write failed", zap.Error(err))
		}
	}

	result, runErr := s.run(r.Context(), req, onProgress)

	runID := ""
	status := db.RunStatusCompleted
	if result != nil {
		if result.RunID != uuid.Nil {
			runID = result.RunID.String()
		}
		if len(result.PlatformErrors) > 0 {
			status = db.RunStatusPartial
		}
		_ = sse.WriteEvent("result", result)
	}
	if runErr != nil {
		status = db.RunStatusFailed
		s.logger.Warn("run failed", zap.String("creator", req.Creator), zap.Error(runErr))
		sse.WriteError(runErr.Error())
	}
	sse.WriteComplete(runID, status)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		s.fail(w, &ErrUnavailable{Feature: "event streaming"})
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	msgs, cancel := s.broker.Subscribe(r.URL.Query().Get("subject"))
	defer cancel()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := sse.WriteEvent("progress", json.RawMessage(msg.Data)); err != nil {
				return
			}
		case <-ticker.C:
			if err := sse.WriteComment("ping"); err != nil {
				return
			}
		}
	}
}

// requireStore writes 503 and returns false when no database is configured.
func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		s.fail(w, &ErrUnavailable{Feature: "run history"})
		return false
	}
	return true
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "invalid UUID: " + raw}
	}
	return id, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	q := r.URL.Query()
	filters := db.RunFilters{Creator: q.Get("creator"), Status: q.Get("status")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 200 {
			s.fail(w, &ErrValidation{Field: "limit", Message: "must be between 1 and 200"})
			return
		}
		filters.Limit = limit
	}

	runs, err := s.store.ListRunsFiltered(r.Context(), filters)
	if err != nil {
		s.fail(w, err)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// loadRun resolves the {id} parameter to an existing run.
func (s *Server) loadRun(r *http.Request) (*db.Run, error) {
	id, err := uuidParam(r, "id")
	if err != nil {
		return nil, err
	}
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, &ErrNotFound{Kind: "run", ID: id.String()}
	}
	return run, nil
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.loadRun(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.loadRun(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.store.DeleteRun(r.Context(), run.ID); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.loadRun(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	q := r.URL.Query()
	artifacts, err := s.store.ListArtifacts(r.Context(), db.ArtifactFilters{
		RunID:    run.ID,
		Step:     q.Get("step"),
		Category: q.Get("category"),
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if artifacts == nil {
		artifacts = []db.ArtifactSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"run_id": run.ID, "artifacts": artifacts})
}

func (s *Server) handleRunSteps(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.loadRun(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	var status, category *string
	if v := r.URL.Query().Get("status"); v != "" {
		status = &v
	}
	if v := r.URL.Query().Get("category"); v != "" {
		category = &v
	}

	list, err := s.store.ListRunSteps(r.Context(), run.ID, status, category)
	if err != nil {
		s.fail(w, err)
		return
	}
	available, err := steps.GetAvailableSteps(r.Context(), s.store, run.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	blocked, err := steps.GetBlockedSteps(r.Context(), s.store, run.ID)
	if err != nil {
		s.fail(w, err)
		return
	}

	order, err := steps.Order()
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := RunStepsResponse{RunID: run.ID.String(), Steps: list, Available: available, Blocked: blocked, Order: order}
	if resp.Steps == nil {
		resp.Steps = []db.RunStep{}
	}
	if resp.Available == nil {
		resp.Available = []string{}
	}
	if resp.Blocked == nil {
		resp.Blocked = []string{}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		s.fail(w, err)
		return
	}
	artifact, err := s.store.GetArtifactByID(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if artifact == nil {
		s.fail(w, &ErrNotFound{Kind: "artifact", ID: id.String()})
		return
	}

	if r.URL.Query().Get("format") == "raw" {
		if artifact.TextContent == "" {
			s.fail(w, &ErrValidation{Field: "format", Message: "artifact has no text content"})
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, artifact.TextContent)
		return
	}
	s.jsonResponse(w, http.StatusOK, artifact)
}
