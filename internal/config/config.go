// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Default limits
const (
	DefaultMaxFetch       = 200
	DefaultPrefilterLimit = 50
	DefaultTopK           = 10
	DefaultConcurrency    = 1
	MaxConcurrency        = 5
	DefaultCollection     = "creator_content"
	DefaultBucket         = "creator-personas"
	DefaultNATSSubject    = "persona.progress"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults, environment variables, or CLI flags.
type Config struct {
	// Creator handles
	YouTubeHandle     string `json:"youtube_handle,omitempty"`     // Channel handle (@name) or channel ID
	InstagramUsername string `json:"instagram_username,omitempty"` // Profile username
	CreatorName       string `json:"creator_name,omitempty"`       // Display name used in prompts

	// Limits
	MaxFetch       int `json:"max_fetch,omitempty" validate:"omitempty,min=1,max=1000"`      // Items fetched per platform
	PrefilterLimit int `json:"prefilter_limit,omitempty" validate:"omitempty,min=1,max=200"` // Items kept after the engagement filter
	TopK           int `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`            // Items kept after relevance ranking
	Concurrency    int `json:"concurrency,omitempty" validate:"omitempty,min=1,max=5"`       // Concurrent transcriptions per platform

	// LLM
	LLMProvider string `json:"llm_provider,omitempty" validate:"omitempty,oneof=gemini openai groq"`
	// LLMModels overrides the provider's model per tier (lite, standard, advanced).
	LLMModels     map[string]string `json:"llm_models,omitempty" validate:"omitempty,dive,keys,oneof=lite standard advanced,endkeys,required"`
	GeminiAPIKey  string            `json:"gemini_api_key,omitempty"`
	OpenAIAPIKey  string            `json:"openai_api_key,omitempty"`
	GroqAPIKey    string            `json:"groq_api_key,omitempty"`
	YouTubeAPIKey string            `json:"youtube_api_key,omitempty"`
	DeepgramKey   string            `json:"deepgram_api_key,omitempty"`

	// Instagram
	InstagramSessionID string `json:"instagram_session_id,omitempty"`

	// Transcripts
	Languages  []string `json:"languages,omitempty" validate:"omitempty,dive,min=2"` // Caption language fallback order
	UseBrowser bool     `json:"use_browser,omitempty"`                               // Allow the headless transcript panel scrape

	// Vector store
	StoreBackend     string `json:"store_backend,omitempty" validate:"omitempty,oneof=memory milvus"`
	MilvusAddress    string `json:"milvus_address,omitempty"`
	CollectionPrefix string `json:"collection_prefix,omitempty"`

	// Infrastructure (all optional)
	DatabaseURL    string `json:"database_url,omitempty"`
	RedisAddr      string `json:"redis_addr,omitempty"`
	NATSURL        string `json:"nats_url,omitempty"`
	NATSSubject    string `json:"nats_subject,omitempty"`
	MinioEndpoint  string `json:"minio_endpoint,omitempty"`
	MinioAccessKey string `json:"minio_access_key,omitempty"`
	MinioSecretKey string `json:"minio_secret_key,omitempty"`
	MinioBucket    string `json:"minio_bucket,omitempty"`
	MinioUseSSL    bool   `json:"minio_use_ssl,omitempty"`

	// Output
	StyleTemplate string `json:"style_template,omitempty"` // Path to persona style example
	OutputDir     string `json:"output_dir,omitempty"`

	// Behavior
	Parallel bool   `json:"parallel,omitempty"` // Run platforms concurrently
	Verbose  bool   `json:"verbose,omitempty"`
	LogLevel string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFile  string `json:"log_file,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

var (
	validate       = validator.New()
	collectionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks that the configuration has valid values.
// Required fields are checked by each command after merging flags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: %q failed %q validation (value %v)", jsonName(fe.StructField()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.CollectionPrefix != "" && !collectionName.MatchString(c.CollectionPrefix) {
		return fmt.Errorf("config error: 'collection_prefix' must contain only letters, digits and underscores")
	}
	if c.StoreBackend == "milvus" && c.MilvusAddress == "" {
		return fmt.Errorf("config error: 'milvus_address' is required when store_backend is milvus")
	}
	if c.PrefilterLimit > 0 && c.TopK > c.PrefilterLimit {
		return fmt.Errorf("config error: 'top_k' cannot exceed 'prefilter_limit'")
	}
	if c.MinioEndpoint != "" && (c.MinioAccessKey == "" || c.MinioSecretKey == "") {
		return fmt.Errorf("config error: minio credentials are required when 'minio_endpoint' is set")
	}
	if c.StyleTemplate != "" {
		if _, err := os.Stat(c.StyleTemplate); os.IsNotExist(err) {
			return fmt.Errorf("config error: style template not found: %s", c.StyleTemplate)
		}
	}

	return nil
}

// jsonName converts a Go field name to its json key for error messages.
func jsonName(field string) string {
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	if f, ok := configFields[field]; ok {
		return f
	}
	return field
}

var configFields = map[string]string{
	"MaxFetch":       "max_fetch",
	"PrefilterLimit": "prefilter_limit",
	"TopK":           "top_k",
	"Concurrency":    "concurrency",
	"LLMProvider":    "llm_provider",
	"LLMModels":      "llm_models",
	"Languages":      "languages",
	"StoreBackend":   "store_backend",
	"LogLevel":       "log_level",
}

// Defaults returns the built-in defaults.
func Defaults() Config {
	return Config{
		MaxFetch:         DefaultMaxFetch,
		PrefilterLimit:   DefaultPrefilterLimit,
		TopK:             DefaultTopK,
		Concurrency:      DefaultConcurrency,
		LLMProvider:      "gemini",
		Languages:        []string{"en", "en-US", "en-GB"},
		StoreBackend:     "memory",
		CollectionPrefix: DefaultCollection,
		NATSSubject:      DefaultNATSSubject,
		MinioBucket:      DefaultBucket,
		LogLevel:         "info",
		OutputDir:        ".",
	}
}

// LoadEnv loads variables from .env files (".env" when none are given)
// without overriding variables already set. Missing files are skipped.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// FromEnv returns a Config populated from environment variables. Call
// LoadEnv first to pick up a .env file.
func FromEnv() Config {
	return Config{
		LLMProvider:        os.Getenv("LLM_PROVIDER"),
		LLMModels:          envModels(),
		GeminiAPIKey:       firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		YouTubeAPIKey:      os.Getenv("YOUTUBE_API_KEY"),
		DeepgramKey:        os.Getenv("DEEPGRAM_API_KEY"),
		InstagramSessionID: os.Getenv("INSTAGRAM_SESSION_ID"),
		StoreBackend:       os.Getenv("VECTOR_STORE"),
		MilvusAddress:      os.Getenv("MILVUS_ADDR"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		NATSURL:            os.Getenv("NATS_URL"),
		MinioEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        os.Getenv("MINIO_BUCKET"),
		MinioUseSSL:        envBool("MINIO_USE_SSL"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		Concurrency:        envInt("PIPELINE_CONCURRENCY"),
	}
}

// LLMAPIKey returns the key for the configured provider.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "groq":
		return c.GroqAPIKey
	default:
		return c.GeminiAPIKey
	}
}

// envModels reads LLM_MODEL_LITE, LLM_MODEL_STANDARD and LLM_MODEL_ADVANCED.
func envModels() map[string]string {
	var models map[string]string
	for _, tier := range []string{"lite", "standard", "advanced"} {
		if v := os.Getenv("LLM_MODEL_" + strings.ToUpper(tier)); v != "" {
			if models == nil {
				models = make(map[string]string)
			}
			models[tier] = v
		}
	}
	return models
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to layer config file values over env values over built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c
	result.LLMModels = maps.Clone(c.LLMModels)

	mergeString(&result.YouTubeHandle, defaults.YouTubeHandle)
	mergeString(&result.InstagramUsername, defaults.InstagramUsername)
	mergeString(&result.CreatorName, defaults.CreatorName)
	mergeString(&result.LLMProvider, defaults.LLMProvider)
	mergeString(&result.GeminiAPIKey, defaults.GeminiAPIKey)
	mergeString(&result.OpenAIAPIKey, defaults.OpenAIAPIKey)
	mergeString(&result.GroqAPIKey, defaults.GroqAPIKey)
	mergeString(&result.YouTubeAPIKey, defaults.YouTubeAPIKey)
	mergeString(&result.DeepgramKey, defaults.DeepgramKey)
	mergeString(&result.InstagramSessionID, defaults.InstagramSessionID)
	mergeString(&result.StoreBackend, defaults.StoreBackend)
	mergeString(&result.MilvusAddress, defaults.MilvusAddress)
	mergeString(&result.CollectionPrefix, defaults.CollectionPrefix)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.RedisAddr, defaults.RedisAddr)
	mergeString(&result.NATSURL, defaults.NATSURL)
	mergeString(&result.NATSSubject, defaults.NATSSubject)
	mergeString(&result.MinioEndpoint, defaults.MinioEndpoint)
	mergeString(&result.MinioAccessKey, defaults.MinioAccessKey)
	mergeString(&result.MinioSecretKey, defaults.MinioSecretKey)
	mergeString(&result.MinioBucket, defaults.MinioBucket)
	mergeString(&result.StyleTemplate, defaults.StyleTemplate)
	mergeString(&result.OutputDir, defaults.OutputDir)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.LogFile, defaults.LogFile)

	// Int fields: use default if zero
	mergeInt(&result.MaxFetch, defaults.MaxFetch)
	mergeInt(&result.PrefilterLimit, defaults.PrefilterLimit)
	mergeInt(&result.TopK, defaults.TopK)
	mergeInt(&result.Concurrency, defaults.Concurrency)

	for tier, model := range defaults.LLMModels {
		if _, ok := result.LLMModels[tier]; ok {
			continue
		}
		if result.LLMModels == nil {
			result.LLMModels = make(map[string]string)
		}
		result.LLMModels[tier] = model
	}

	if len(result.Languages) == 0 {
		result.Languages = append([]string(nil), defaults.Languages...)
	}

	// Bool fields: cannot distinguish unset from false, so OR them
	result.MinioUseSSL = result.MinioUseSSL || defaults.MinioUseSSL
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Parallel = result.Parallel || defaults.Parallel
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

func mergeString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}

func mergeInt(dst *int, fallback int) {
	if *dst == 0 {
		*dst = fallback
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return b
}
