// Package server provides the HTTP API for creator research runs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/creator-persona/internal/db"
	"github.com/jonathan/creator-persona/internal/events"
	"github.com/jonathan/creator-persona/internal/logging"
	"github.com/jonathan/creator-persona/internal/pipeline"
	"github.com/jonathan/creator-persona/internal/server/ratelimit"
)

// RunStore is the read side of run persistence used by the API. *db.DB satisfies it.
type RunStore interface {
	ListRunsFiltered(ctx context.Context, filters db.RunFilters) ([]db.Run, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	DeleteRun(ctx context.Context, runID uuid.UUID) error
	ListArtifacts(ctx context.Context, filters db.ArtifactFilters) ([]db.ArtifactSummary, error)
	GetArtifactByID(ctx context.Context, artifactID uuid.UUID) (*db.Artifact, error)
	ListRunSteps(ctx context.Context, runID uuid.UUID, status, category *string) ([]db.RunStep, error)
	GetRunStep(ctx context.Context, runID uuid.UUID, stepName string) (*db.RunStep, error)
	OutputStore
}

// RunFunc executes a full pipeline run for a request, reporting progress
// through onProgress.
type RunFunc func(ctx context.Context, req RunRequest, onProgress pipeline.ProgressCallback) (*pipeline.Result, error)

// Config holds server configuration
type Config struct {
	Port            int
	RateLimit       *ratelimit.Config
	ShutdownTimeout time.Duration
	// KeepAlive is the interval between SSE comment lines on idle streams.
	KeepAlive time.Duration
}

// Deps are the services behind the API. Nil services disable their routes with 503.
type Deps struct {
	Store  RunStore
	Run    RunFunc
	Broker *events.Broker
	Logger *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	httpServer  *http.Server
	store       RunStore
	run         RunFunc
	broker      *events.Broker
	rateLimiter *ratelimit.Limiter
	validator   *validator.Validate
	logger      *zap.Logger
	keepAlive   time.Duration
	shutdown    time.Duration
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	logger := logging.OrNop(deps.Logger)
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 15 * time.Second
	}

	s := &Server{
		store:       deps.Store,
		run:         deps.Run,
		broker:      deps.Broker,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		validator:   validator.New(),
		logger:      logger,
		keepAlive:   cfg.KeepAlive,
		shutdown:    cfg.ShutdownTimeout,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(s.withLogging)
	router.Use(middleware.Recoverer)
	router.Use(withCORS)
	router.Use(s.rateLimiter.Middleware)

	router.Get("/health", s.handleHealth)
	router.Post("/merge", s.handleMerge)
	router.Post("/report", s.handleReport)
	router.Get("/events", s.handleEvents)

	router.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Post("/stream", s.handleRunStream)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Delete("/", s.handleDeleteRun)
			r.Get("/artifacts", s.handleRunArtifacts)
			r.Get("/steps", s.handleRunSteps)
			r.Get("/creator-info", s.handleCreatorInfo)
			r.Get("/ranked", s.handleRankedItems)
			r.Get("/transcripts", s.handleTranscripts)
			r.Get("/report", s.textOutput(db.StepReport, "text/markdown; charset=utf-8"))
			r.Get("/persona", s.textOutput(db.StepPersona, "text/plain; charset=utf-8"))
		})
	})
	router.Get("/artifacts/{id}", s.handleArtifact)

	s.router = router
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Streaming runs take minutes, so writes are not bounded here.
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	prune := time.NewTicker(10 * time.Minute)
	defer prune.Stop()

	for {
		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-prune.C:
			if n := s.rateLimiter.Prune(time.Hour); n > 0 {
				s.logger.Debug("pruned rate limit buckets", zap.Int("count", n))
			}
		case <-ctx.Done():
			s.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
			defer cancel()
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			s.logger.Info("server stopped")
			return nil
		}
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to a status and writes it. Server errors are logged and
// their detail withheld from the client.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("request failed", zap.Error(err))
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}
