package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/creator-persona/internal/config"
	"github.com/jonathan/creator-persona/internal/events"
	"github.com/jonathan/creator-persona/internal/pipeline"
	"github.com/jonathan/creator-persona/internal/server"
	"github.com/jonathan/creator-persona/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server exposing merge and report rendering, streamed pipeline runs and, when a database is configured, run history.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	deps := server.Deps{Broker: events.NewBroker(0), Logger: svc.logger}
	database, err := svc.DB(ctx)
	if err != nil {
		svc.logger.Warn("database unavailable, run history disabled", zap.Error(err))
	} else if database != nil {
		deps.Store = database
	}
	deps.Run = newRunFunc(svc, cfg, deps.Broker)

	srv := server.New(server.Config{Port: servePort, RateLimit: ratelimit.LoadConfig()}, deps)
	return srv.Start(ctx)
}

// newRunFunc runs one pipeline per request. Runs share the per-platform
// vector stores, so they execute one at a time.
func newRunFunc(svc *services, base *config.Config, broker *events.Broker) server.RunFunc {
	slot := make(chan struct{}, 1)
	return func(ctx context.Context, req server.RunRequest, onProgress pipeline.ProgressCallback) (*pipeline.Result, error) {
		select {
		case slot <- struct{}{}:
			defer func() { <-slot }()
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for a previous run: %w", ctx.Err())
		}

		cfg := *base
		cfg.Parallel = req.Parallel
		if req.TopK > 0 {
			cfg.TopK = req.TopK
		}
		if req.MaxFetch > 0 {
			cfg.MaxFetch = req.MaxFetch
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		opts, err := buildRunOptions(ctx, svc, &cfg, runTarget{
			Creator:   req.Creator,
			YouTube:   req.YouTubeHandle,
			Instagram: req.InstagramUsername,
		})
		if err != nil {
			return nil, err
		}
		opts.SkipReset = req.SkipReset
		opts.OnProgress = onProgress
		opts.Out = io.Discard
		opts.Publisher = events.Multi{broker, opts.Publisher}
		return pipeline.RunPipeline(ctx, opts)
	}
}
