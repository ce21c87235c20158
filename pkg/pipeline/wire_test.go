package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Guffawaffle/majel/pkg/artifacts"
	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/config"
	"github.com/Guffawaffle/majel/pkg/fixtures"
)

func liteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		LogLevel: "INFO",
		DataDir:  dir,
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			URL:    "file:" + filepath.Join(dir, "majel.db"),
		},
		Artifacts: artifacts.Config{Type: artifacts.StoreTypeFS, DataDir: dir},
		Cache:     config.CacheConfig{Size: 4},
		Signing:   config.SigningConfig{Seed: "wire-test", KeyID: "wire"},
	}
}

func TestNewRuntime_LiteMode(t *testing.T) {
	ctx := context.Background()
	rt, err := NewRuntime(ctx, liteConfig(t), nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close(ctx)) }()

	require.NotNil(t, rt.Signer)
	assert.Nil(t, rt.Redis)

	seed := fixtures.SampleSeed()
	res, err := rt.Build(ctx, &seed, builder.Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Attestation)
	assert.Equal(t, "wire", res.Attestation.KeyID)

	loaded, err := rt.Load(ctx, res.Artifact.ArtifactVersion)
	require.NoError(t, err)
	assert.Equal(t, res.Artifact.ArtifactVersion, loaded.ArtifactVersion)
}

func TestNewRuntime_UnreachableRedisFallsBack(t *testing.T) {
	ctx := context.Background()
	cfg := liteConfig(t)
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	rt, err := NewRuntime(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { _ = rt.Close(ctx) }()
	assert.Nil(t, rt.Redis)
}

func TestNewRuntime_BadDriver(t *testing.T) {
	cfg := liteConfig(t)
	cfg.Database.Driver = "oracle"
	_, err := NewRuntime(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewRuntime_FailureStopsTelemetry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := liteConfig(t)
	cfg.Telemetry = config.TelemetryConfig{Enabled: true, Endpoint: "127.0.0.1:1", Insecure: true, SampleRate: 1}
	cfg.Database.Driver = "oracle"
	_, err := NewRuntime(ctx, cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version index")

	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok, "telemetry was not started")
	_, span := tp.Tracer("wire-test").Start(ctx, "after-failure")
	defer span.End()
	assert.False(t, span.IsRecording(), "tracer provider still running")
}
