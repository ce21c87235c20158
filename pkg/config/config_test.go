package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guffawaffle/majel/pkg/artifacts"
	"github.com/Guffawaffle/majel/pkg/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LOG_LEVEL", "LOG_FORMAT", "DATA_DIR", "DATABASE_URL", "DATABASE_DRIVER",
		"ARTIFACT_STORAGE_TYPE", "ARTIFACT_BUCKET", "REDIS_URL", "EVAL_CACHE_SIZE",
		"EVAL_CACHE_TTL", "SIGNING_SEED", "SIGNING_KEY_ID", "OTEL_ENABLED",
		"OTEL_SAMPLE_RATE", "OTEL_EXPORTER_OTLP_ENDPOINT", "MAJEL_LOCALE",
		"MAJEL_SNAPSHOT_VERSION",
	} {
		t.Setenv(k, "")
	}
}

// Load must boot with local lite-mode defaults.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:"+filepath.Join("data", "majel.db"), cfg.Database.URL)
	assert.Equal(t, "data", cfg.Artifacts.DataDir)
	assert.Equal(t, config.DefaultCacheSize, cfg.Cache.Size)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Empty(t, cfg.Cache.RedisURL)
	assert.False(t, cfg.Signing.Enabled())
	assert.Equal(t, config.DefaultSigningKeyID, cfg.Signing.KeyID)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Equal(t, "en", cfg.Locale)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("DATABASE_URL", "postgres://majel@db:5432/majel")
	t.Setenv("ARTIFACT_STORAGE_TYPE", "s3")
	t.Setenv("ARTIFACT_BUCKET", "contracts")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("EVAL_CACHE_SIZE", "64")
	t.Setenv("EVAL_CACHE_TTL", "5m")
	t.Setenv("SIGNING_SEED", "s3cr3t")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLE_RATE", "0.25")
	t.Setenv("MAJEL_SNAPSHOT_VERSION", "2026.10")

	cfg := config.Load()

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "postgres", cfg.Database.Driver, "driver inferred from URL scheme")
	assert.Equal(t, "postgres://majel@db:5432/majel", cfg.Database.URL)
	assert.Equal(t, artifacts.StoreTypeS3, cfg.Artifacts.Type)
	assert.Equal(t, "contracts", cfg.Artifacts.Bucket)
	assert.Equal(t, "redis://cache:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, 64, cfg.Cache.Size)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Signing.Enabled())
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRate)
	assert.Equal(t, "2026.10", cfg.SnapshotVersion)
}

func TestLoad_BadNumbersKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVAL_CACHE_SIZE", "-3")
	t.Setenv("EVAL_CACHE_TTL", "soon")

	cfg := config.Load()
	assert.Equal(t, config.DefaultCacheSize, cfg.Cache.Size)
	assert.Equal(t, config.DefaultCacheTTL, cfg.Cache.TTL)
}

func TestLoadFile_Overlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIGNING_SEED", "from-env")

	path := filepath.Join(t.TempDir(), "majel.yaml")
	doc := `
logLevel: WARN
database:
  driver: pgx
  url: postgres://localhost/majel
cache:
  size: 16
  ttl: 90s
signing:
  keyID: ops-2026
locale: de
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/majel", cfg.Database.URL)
	assert.Equal(t, 16, cfg.Cache.Size)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "ops-2026", cfg.Signing.KeyID)
	assert.Equal(t, "from-env", cfg.Signing.Seed, "seed only comes from the environment")
	assert.Equal(t, "de", cfg.Locale)
	assert.Equal(t, "text", cfg.LogFormat, "omitted keys keep defaults")
}

func TestLoadFile_Errors(t *testing.T) {
	clearEnv(t)

	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nope: true\n"), 0o600))
	_, err = config.LoadFile(path)
	require.Error(t, err, "unknown keys are rejected")
}

func TestLoadFile_EmptyPath(t *testing.T) {
	clearEnv(t)
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.LogLevel)
}
