package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/zola/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Unsplash    UnsplashConfig    `toml:"unsplash"`
	TripAdvisor TripAdvisorConfig `toml:"tripadvisor"`
	Gemini      GeminiConfig      `toml:"gemini"`
	Claude      ClaudeConfig      `toml:"claude"`
	LLM         LLMConfig         `toml:"llm"`
	Generation  GenerationConfig  `toml:"generation"`
	Sessions    SessionsConfig    `toml:"sessions"`
	ImagePool   ImagePoolConfig   `toml:"image_pool"`
	Export      ExportConfig      `toml:"export"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	Host           string   `toml:"host"`
	AllowedOrigins []string `toml:"allowed_origins"` // CORS origins allowed to call the API
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// UnsplashConfig configures the image search client
type UnsplashConfig struct {
	AccessKey   string `toml:"access_key"`
	BaseURL     string `toml:"base_url"`
	PerPage     int    `toml:"per_page"`     // Results per search request
	RandomCount int    `toml:"random_count"` // Images per random request
	RateLimit   string `toml:"rate_limit"`   // Minimum interval between requests (default: "100ms")
	Timeout     string `toml:"timeout"`      // HTTP timeout (default: "15s")
}

// TripAdvisorConfig configures the place lookup client
type TripAdvisorConfig struct {
	APIKey           string `toml:"api_key"`
	BaseURL          string `toml:"base_url"`
	Language         string `toml:"language"`
	Currency         string `toml:"currency"`
	ResultsPerQuery  int    `toml:"results_per_query"`  // Search hits resolved to details per query (default: 5)
	RateLimit        string `toml:"rate_limit"`         // Minimum interval between requests (default: "200ms")
	Timeout          string `toml:"timeout"`            // HTTP timeout (default: "15s")
	DetailsCacheSize int    `toml:"details_cache_size"` // Location details kept in memory (0 disables)
	FetchPhotos      bool   `toml:"fetch_photos"`       // Resolve one photo per place
}

// GeminiConfig contains Google Gemini API configuration for itinerary generation
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "gemini-2.5-flash"
	Timeout     string  `toml:"timeout"`     // default: "5m"
	Temperature float32 `toml:"temperature"` // default: 0.7
}

// ClaudeConfig contains Anthropic Claude API configuration for itinerary generation
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains configuration shared by all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
	MaxRetries      int         `toml:"max_retries"`      // Rate-limit retries per call (default: 0)
}

// GenerationConfig controls the itinerary generation flow
type GenerationConfig struct {
	FenceStaleResponses bool `toml:"fence_stale_responses"` // Discard responses superseded by a newer request
	RecommendPlaces     bool `toml:"recommend_places"`      // Look up attractions, restaurants and hotels
}

// SessionsConfig bounds the in-memory session workspaces
type SessionsConfig struct {
	CookieName  string `toml:"cookie_name"`
	MaxSessions int    `toml:"max_sessions"`
	IdleTTL     string `toml:"idle_ttl"` // default: "2h"
}

// ImagePoolConfig configures the persisted pool of random inspiration images
type ImagePoolConfig struct {
	Enabled         bool   `toml:"enabled"`
	Size            int    `toml:"size"`             // Images fetched per refresh (default: 150)
	RefreshSchedule string `toml:"refresh_schedule"` // Cron schedule (default: "0 */6 * * *")
}

// ExportConfig configures itinerary export
type ExportConfig struct {
	ThumbnailWidth int    `toml:"thumbnail_width"` // Pixels (default: 320)
	FetchTimeout   string `toml:"fetch_timeout"`   // Per-image download timeout (default: "10s")
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:           8000,
			Host:           "localhost",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/zola",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Unsplash: UnsplashConfig{
			BaseURL:     "https://api.unsplash.com",
			PerPage:     30,
			RandomCount: 30,
			RateLimit:   "100ms",
			Timeout:     "15s",
		},
		TripAdvisor: TripAdvisorConfig{
			BaseURL:          "https://api.content.tripadvisor.com/api/v1",
			Language:         "en",
			Currency:         "USD",
			ResultsPerQuery:  5,
			RateLimit:        "200ms",
			Timeout:          "15s",
			DetailsCacheSize: 512,
			FetchPhotos:      true,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     "5m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-5",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			MaxRetries:      0,
		},
		Generation: GenerationConfig{
			FenceStaleResponses: true,
			RecommendPlaces:     true,
		},
		Sessions: SessionsConfig{
			CookieName:  "zola_session",
			MaxSessions: 1000,
			IdleTTL:     "2h",
		},
		ImagePool: ImagePoolConfig{
			Enabled:         true,
			Size:            150,
			RefreshSchedule: "0 */6 * * *",
		},
		Export: ExportConfig{
			ThumbnailWidth: 320,
			FetchTimeout:   "10s",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied afterwards with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ZOLA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("ZOLA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ZOLA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if origins := os.Getenv("ZOLA_ALLOWED_ORIGINS"); origins != "" {
		if list := splitList(origins); len(list) > 0 {
			config.Server.AllowedOrigins = list
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("ZOLA_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("ZOLA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ZOLA_LOG_OUTPUT"); output != "" {
		if list := splitList(output); len(list) > 0 {
			config.Logging.Output = list
		}
	}

	// Upstream API keys (ZOLA_* first, then the plain names used in .env files)
	if key := firstEnv("ZOLA_UNSPLASH_ACCESS_KEY", "UNSPLASH_ACCESS_KEY"); key != "" {
		config.Unsplash.AccessKey = key
	}
	if key := firstEnv("ZOLA_TRIPADVISOR_KEY", "TRIPADVISOR_KEY"); key != "" {
		config.TripAdvisor.APIKey = key
	}

	// LLM configuration
	if provider := os.Getenv("ZOLA_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if model := os.Getenv("ZOLA_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if model := os.Getenv("ZOLA_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Generation flow
	if fence := os.Getenv("ZOLA_GENERATION_FENCE_STALE"); fence != "" {
		if b, err := strconv.ParseBool(fence); err == nil {
			config.Generation.FenceStaleResponses = b
		}
	}

	// Image pool
	if enabled := os.Getenv("ZOLA_IMAGE_POOL_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.ImagePool.Enabled = b
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name.
// Resolution order: environment variables → KV store → config fallback → error
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":      {"ZOLA_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"claude_api_key":      {"ZOLA_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"unsplash_access_key": {"ZOLA_UNSPLASH_ACCESS_KEY", "UNSPLASH_ACCESS_KEY"},
		"tripadvisor_key":     {"ZOLA_TRIPADVISOR_KEY", "TRIPADVISOR_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		if envValue := firstEnv(envVarNames...); envValue != "" {
			return envValue, nil
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ValidateSchedule validates a five-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseDuration parses a duration string, returning fallback when empty or invalid
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
