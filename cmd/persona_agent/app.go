package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/creator-persona/internal/cache"
	"github.com/jonathan/creator-persona/internal/config"
	"github.com/jonathan/creator-persona/internal/db"
	"github.com/jonathan/creator-persona/internal/events"
	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/jonathan/creator-persona/internal/ingestion"
	"github.com/jonathan/creator-persona/internal/instagram"
	"github.com/jonathan/creator-persona/internal/llm"
	"github.com/jonathan/creator-persona/internal/logging"
	"github.com/jonathan/creator-persona/internal/persona"
	"github.com/jonathan/creator-persona/internal/pipeline"
	"github.com/jonathan/creator-persona/internal/ranking"
	"github.com/jonathan/creator-persona/internal/retry"
	"github.com/jonathan/creator-persona/internal/storage"
	"github.com/jonathan/creator-persona/internal/transcribe"
	"github.com/jonathan/creator-persona/internal/types"
	"github.com/jonathan/creator-persona/internal/vectorstore"
	"github.com/jonathan/creator-persona/internal/youtube"
)

// loadSettings layers defaults, environment and the --config file. Command
// flags are applied by each command afterwards.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	var fileCfg config.Config
	if rootConfigPath != "" {
		loaded, err := config.LoadConfig(rootConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		fileCfg = *loaded
	}

	env := config.FromEnv()
	merged := fileCfg.MergeWithDefaults(env)
	merged = merged.MergeWithDefaults(config.Defaults())

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		merged.Verbose = rootVerbose
	}
	if flags.Changed("log-level") {
		merged.LogLevel = rootLogLevel
	}
	if flags.Changed("log-file") {
		merged.LogFile = rootLogFile
	}
	return &merged, nil
}

// services builds clients from configuration on first use and closes them
// together.
type services struct {
	cfg    *config.Config
	logger *zap.Logger

	mu       sync.Mutex
	llm      llm.Client
	cache    cache.Cache
	db       *db.DB
	dbTried  bool
	nats     *events.NATSClient
	upl      storage.Uploader
	uplTried bool
	milvus   client.Client
	embedder llm.Embedder
	stores   map[types.Platform]*vectorstore.Handle
	closers  []func()
}

func newServices(cfg *config.Config) (*services, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	s := &services{cfg: cfg, logger: logger, stores: map[types.Platform]*vectorstore.Handle{}}
	s.closers = append(s.closers, func() { _ = logger.Sync() })
	return s, nil
}

// Close releases every client in reverse order of creation.
func (s *services) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// LLM returns the completion client for the configured provider.
func (s *services) LLM(ctx context.Context) (llm.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.llm != nil {
		return s.llm, nil
	}
	key := s.cfg.LLMAPIKey()
	if key == "" {
		return nil, fmt.Errorf("no API key configured for LLM provider %q", s.cfg.LLMProvider)
	}
	lcfg := llm.ConfigFor(llm.Provider(s.cfg.LLMProvider))
	for tier, model := range s.cfg.LLMModels {
		lcfg = lcfg.WithModel(llm.ModelTier(tier), model)
	}
	c, err := llm.NewClient(ctx, lcfg, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	s.llm = c
	s.closers = append(s.closers, func() { _ = c.Close() })
	return c, nil
}

// Cache returns Redis when configured and reachable, otherwise an in-process cache.
func (s *services) Cache(ctx context.Context) cache.Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		return s.cache
	}
	s.cache = cache.NewMemory()
	if s.cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, s.cfg.RedisAddr, os.Getenv("REDIS_PASSWORD"), s.logger)
		if err != nil {
			s.logger.Warn("redis unavailable, using in-process cache", zap.Error(err))
		} else {
			s.cache = rc
			s.closers = append(s.closers, func() { _ = rc.Close() })
		}
	}
	return s.cache
}

// DB returns the artifact database, or nil when DATABASE_URL is not set.
func (s *services) DB(ctx context.Context) (*db.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dbTried {
		return s.db, nil
	}
	s.dbTried = true
	if s.cfg.DatabaseURL == "" {
		return nil, nil
	}
	database, err := db.Connect(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	s.db = database
	s.closers = append(s.closers, database.Close)
	return database, nil
}

// Publisher returns the NATS publisher, or nil when NATS is not configured
// or unreachable.
func (s *services) Publisher(ctx context.Context) events.Publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nats != nil {
		return s.nats
	}
	if s.cfg.NATSURL == "" {
		return nil
	}
	nc, err := events.Connect(ctx, s.cfg.NATSURL, os.Getenv("NATS_TOKEN"), s.logger)
	if err != nil {
		s.logger.Warn("nats unavailable, progress events disabled", zap.Error(err))
		return nil
	}
	s.nats = nc
	s.closers = append(s.closers, nc.Close)
	return nc
}

// Uploader returns the MinIO uploader, or nil when object storage is not configured.
func (s *services) Uploader(ctx context.Context) storage.Uploader {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uplTried {
		return s.upl
	}
	s.uplTried = true
	if s.cfg.MinioEndpoint == "" {
		return nil
	}
	u, err := storage.NewMinioUploader(ctx, storage.Options{
		Endpoint:  s.cfg.MinioEndpoint,
		AccessKey: s.cfg.MinioAccessKey,
		SecretKey: s.cfg.MinioSecretKey,
		Bucket:    s.cfg.MinioBucket,
		UseSSL:    s.cfg.MinioUseSSL,
		Logger:    s.logger,
	})
	if err != nil {
		s.logger.Warn("object storage unavailable, uploads disabled", zap.Error(err))
		return nil
	}
	s.upl = u
	return u
}

// Store returns the shared handle for platform's vector store.
func (s *services) Store(ctx context.Context, platform types.Platform) (*vectorstore.Handle, error) {
	lc, err := s.LLM(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.stores[platform]; ok {
		return h, nil
	}

	namespace := vectorstore.Namespace(s.cfg.CollectionPrefix, platform)
	answerer := &vectorstore.Answerer{Client: lc, Tier: llm.TierStandard}

	var store vectorstore.Store
	switch s.cfg.StoreBackend {
	case "milvus":
		if s.milvus == nil {
			mc, err := vectorstore.DialMilvus(ctx, s.cfg.MilvusAddress)
			if err != nil {
				return nil, err
			}
			s.milvus = mc
			s.closers = append(s.closers, func() { _ = mc.Close() })
		}
		if s.embedder == nil {
			emb, err := llm.NewGeminiEmbedder(ctx, s.cfg.GeminiAPIKey, "")
			if err != nil {
				return nil, fmt.Errorf("milvus backend needs a Gemini embedding key: %w", err)
			}
			s.embedder = emb
			s.closers = append(s.closers, func() { _ = emb.Close() })
		}
		ms, err := vectorstore.NewMilvusStore(s.milvus, namespace, s.embedder, answerer, s.logger)
		if err != nil {
			return nil, err
		}
		store = ms
	default:
		store = vectorstore.NewMemoryStore(namespace, answerer)
	}

	h := vectorstore.NewHandle(namespace, store)
	s.stores[platform] = h
	return h, nil
}

// writerOptions retries transient store errors on the networked backend.
func (s *services) writerOptions() []vectorstore.WriterOption {
	if s.cfg.StoreBackend == "milvus" {
		return []vectorstore.WriterOption{vectorstore.WithRetry(retry.DefaultPolicy())}
	}
	return nil
}

// Fetcher returns the content lister for platform.
func (s *services) Fetcher(ctx context.Context, platform types.Platform) (pipeline.FetchFunc, error) {
	switch platform {
	case types.PlatformYouTube:
		f, err := youtube.NewFetcher(ctx, s.cfg.YouTubeAPIKey, s.logger)
		if err != nil {
			return nil, err
		}
		return f.FetchChannel, nil
	case types.PlatformInstagram:
		return instagram.NewFetcher(s.cfg.InstagramSessionID, s.logger).FetchProfile, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
}

// Transcriber returns the transcript source for platform.
func (s *services) Transcriber(platform types.Platform) (ingestion.Transcriber, error) {
	switch platform {
	case types.PlatformYouTube:
		var renderer fetch.Renderer
		if s.cfg.UseBrowser {
			renderer = fetch.ChromeRenderer{}
		}
		return youtube.NewTranscriber(youtube.NewCaptions(), renderer, s.cfg.Languages, s.logger), nil
	case types.PlatformInstagram:
		stt, err := transcribe.NewClient(s.cfg.DeepgramKey)
		if err != nil {
			return nil, fmt.Errorf("instagram transcription: %w", err)
		}
		return instagram.NewMediaTranscriber(stt, instagram.NewDownloader(s.logger), instagram.NewTranscoder(), s.logger), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
}

// Ranker returns an LLM relevance ranker for creator backed by the cache.
func (s *services) Ranker(ctx context.Context, creator string) (*ranking.Ranker, error) {
	lc, err := s.LLM(ctx)
	if err != nil {
		return nil, err
	}
	r := ranking.NewRanker(lc, creator, s.logger)
	r.Cache = s.Cache(ctx)
	return r, nil
}

// Persona returns the persona renderer.
func (s *services) Persona(ctx context.Context) (*persona.Renderer, error) {
	lc, err := s.LLM(ctx)
	if err != nil {
		return nil, err
	}
	return persona.NewRenderer(lc, s.logger), nil
}

// PlatformDeps wires every component one platform sub-pipeline needs.
func (s *services) PlatformDeps(ctx context.Context, platform types.Platform, handle, creator string) (pipeline.PlatformDeps, error) {
	deps := pipeline.PlatformDeps{Platform: platform, Handle: handle, WriterOptions: s.writerOptions()}
	var err error
	if deps.Fetch, err = s.Fetcher(ctx, platform); err != nil {
		return deps, err
	}
	if deps.Ranker, err = s.Ranker(ctx, creator); err != nil {
		return deps, err
	}
	if deps.Transcriber, err = s.Transcriber(platform); err != nil {
		return deps, err
	}
	if deps.Store, err = s.Store(ctx, platform); err != nil {
		return deps, err
	}
	return deps, nil
}

// writeJSON writes v indented to path, or to w when path is "" or "-".
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeText(w, path, string(data)+"\n")
}

// writeText writes text to path, creating parent directories, or to w when
// path is "" or "-".
func writeText(w io.Writer, path, text string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(w, text)
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func requireFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}
