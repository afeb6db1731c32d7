package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported values for DATA_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Document store
	DataBackend              string
	FirestoreProjectID       string
	FirestoreDatabase        string
	FirestoreCredentialsFile string
	MongoURI                 string
	MongoDatabase            string

	// Training content (Tribe)
	TribeContentURL string
	TribeAPIToken   string
	TribeCDNURL     string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL        time.Duration
	CatalogCacheTTL time.Duration

	// Reporting weeks start on Monday in this location.
	WeekTimezone string
	WeekLocation *time.Location

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret string
	JWTIssuer string

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables with defaults.
// An unknown WEEK_TIMEZONE falls back to UTC; Validate reports it.
func Load() *Config {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:              strings.ToLower(getEnv("DATA_BACKEND", BackendFirestore)),
		FirestoreProjectID:       getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreDatabase:        getEnv("FIRESTORE_DATABASE", "(default)"),
		FirestoreCredentialsFile: getEnv("FIRESTORE_CREDENTIALS_FILE", ""),
		MongoURI:                 getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:            getEnv("MONGO_DATABASE", "leaderforge"),

		TribeContentURL: getEnv("TRIBE_CONTENT_URL", "https://edge.tribesocial.io/api/collection-by-id/220"),
		TribeAPIToken:   getEnv("TRIBE_API_TOKEN", ""),
		TribeCDNURL:     getEnv("TRIBE_CDN_URL", "https://cdn.tribesocial.io"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 16),

		CacheTTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 15*time.Minute),

		WeekTimezone: getEnv("WEEK_TIMEZONE", "UTC"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret: getEnv("JWT_SECRET", "leaderforge-dev-secret-change-me"),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	loc, err := time.LoadLocation(cfg.WeekTimezone)
	if err != nil {
		loc = time.UTC
	}
	cfg.WeekLocation = loc

	return cfg
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	switch c.DataBackend {
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required when DATA_BACKEND=%s", BackendFirestore)
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when DATA_BACKEND=%s", BackendMongo)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported DATA_BACKEND %q", c.DataBackend)
	}
	if _, err := time.LoadLocation(c.WeekTimezone); err != nil {
		return fmt.Errorf("invalid WEEK_TIMEZONE %q: %w", c.WeekTimezone, err)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
