// Package config loads runtime configuration for the majel CLI and
// pipeline service from the environment, an optional .env file and an
// optional YAML file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Guffawaffle/majel/pkg/artifacts"
)

const (
	DefaultDataDir      = "data"
	DefaultCacheSize    = 1024
	DefaultCacheTTL     = time.Hour
	DefaultSigningKeyID = "majel-default"
	DefaultLocale       = "en"
)

// Config holds pipeline configuration.
type Config struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
	DataDir   string `yaml:"dataDir"`

	Database  DatabaseConfig   `yaml:"database"`
	Artifacts artifacts.Config `yaml:"artifacts"`
	Cache     CacheConfig      `yaml:"cache"`
	Signing   SigningConfig    `yaml:"signing"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`

	// Locale is stamped on evidence entries of built artifacts.
	Locale string `yaml:"locale"`
	// SnapshotVersion identifies the game-data snapshot the seed came from.
	SnapshotVersion string `yaml:"snapshotVersion"`
}

// DatabaseConfig selects the version index backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres or pgx
	URL    string `yaml:"url"`
}

// CacheConfig sizes the evaluation cache. An empty RedisURL keeps the cache
// in-process.
type CacheConfig struct {
	Size     int           `yaml:"size"`
	RedisURL string        `yaml:"redisURL"`
	TTL      time.Duration `yaml:"ttl"`
}

// SigningConfig holds the attestation key material. Signing is off when
// Seed is empty.
type SigningConfig struct {
	Seed  string `yaml:"-"`
	KeyID string `yaml:"keyID"`
}

// Enabled reports whether artifacts should be attested.
func (s SigningConfig) Enabled() bool { return s.Seed != "" }

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRate  float64 `yaml:"sampleRate"`
	Environment string  `yaml:"environment"`
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first if present; variables already set in the
// process environment win.
func Load() *Config {
	_ = godotenv.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if logFormat == "" {
		logFormat = "text"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = DefaultDataDir
	}

	driver := os.Getenv("DATABASE_DRIVER")
	dbURL := os.Getenv("DATABASE_URL")
	if driver == "" {
		if strings.HasPrefix(dbURL, "postgres://") || strings.HasPrefix(dbURL, "postgresql://") {
			driver = "postgres"
		} else {
			driver = "sqlite"
		}
	}
	if dbURL == "" && driver == "sqlite" {
		// Lite mode: a local SQLite file next to the artifact blobs.
		dbURL = "file:" + filepath.Join(dataDir, "majel.db")
	}

	store := artifacts.ConfigFromEnv()
	if store.DataDir == "" {
		store.DataDir = dataDir
	}

	cacheSize := DefaultCacheSize
	if v, err := strconv.Atoi(os.Getenv("EVAL_CACHE_SIZE")); err == nil && v > 0 {
		cacheSize = v
	}
	cacheTTL := DefaultCacheTTL
	if v, err := time.ParseDuration(os.Getenv("EVAL_CACHE_TTL")); err == nil && v > 0 {
		cacheTTL = v
	}

	keyID := os.Getenv("SIGNING_KEY_ID")
	if keyID == "" {
		keyID = DefaultSigningKeyID
	}

	sampleRate := 1.0
	if v, err := strconv.ParseFloat(os.Getenv("OTEL_SAMPLE_RATE"), 64); err == nil {
		sampleRate = v
	}
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	environment := os.Getenv("MAJEL_ENV")
	if environment == "" {
		environment = "development"
	}

	locale := os.Getenv("MAJEL_LOCALE")
	if locale == "" {
		locale = DefaultLocale
	}

	return &Config{
		LogLevel:  strings.ToUpper(logLevel),
		LogFormat: logFormat,
		DataDir:   dataDir,
		Database: DatabaseConfig{
			Driver: driver,
			URL:    dbURL,
		},
		Artifacts: store,
		Cache: CacheConfig{
			Size:     cacheSize,
			RedisURL: os.Getenv("REDIS_URL"),
			TTL:      cacheTTL,
		},
		Signing: SigningConfig{
			Seed:  os.Getenv("SIGNING_SEED"),
			KeyID: keyID,
		},
		Telemetry: TelemetryConfig{
			Enabled:     os.Getenv("OTEL_ENABLED") == "true",
			Endpoint:    endpoint,
			Insecure:    os.Getenv("OTEL_INSECURE") == "true",
			SampleRate:  sampleRate,
			Environment: environment,
		},
		Locale:          locale,
		SnapshotVersion: os.Getenv("MAJEL_SNAPSHOT_VERSION"),
	}
}
