package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Guffawaffle/majel/pkg/artifacts"
	"github.com/Guffawaffle/majel/pkg/config"
	"github.com/Guffawaffle/majel/pkg/evalcache"
	"github.com/Guffawaffle/majel/pkg/observability"
	"github.com/Guffawaffle/majel/pkg/signing"
	"github.com/Guffawaffle/majel/pkg/store"
)

// Runtime is a Service together with the resources it owns.
type Runtime struct {
	*Service

	Config        *config.Config
	Observability *observability.Provider
	Index         *store.VersionIndex
	Redis         *evalcache.Redis
	Signer        *signing.Signer
}

// NewRuntime initializes every subsystem cfg asks for. Optional pieces that
// fail to come up (telemetry, Redis) are logged and left out; storage and
// the version index are required.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Config: cfg}

	// --- Observability ---
	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.Telemetry.Enabled
	obsCfg.OTLPEndpoint = cfg.Telemetry.Endpoint
	obsCfg.Insecure = cfg.Telemetry.Insecure
	obsCfg.SampleRate = cfg.Telemetry.SampleRate
	obsCfg.Environment = cfg.Telemetry.Environment
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		logger.Warn("observability init skipped", "error", err)
		obs = observability.Noop()
	}
	rt.Observability = obs

	// --- Artifact storage ---
	blobs, err := artifacts.NewStore(ctx, cfg.Artifacts)
	if err != nil {
		return nil, rt.fail(ctx, fmt.Errorf("artifact store: %w", err))
	}
	logger.Debug("subsystem ready", "component", "artifact store", "type", cfg.Artifacts.Type)

	// --- Version index ---
	if cfg.Database.Driver == "sqlite" && cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, rt.fail(ctx, fmt.Errorf("data dir: %w", err))
		}
	}
	idx, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, rt.fail(ctx, fmt.Errorf("version index: %w", err))
	}
	rt.Index = idx
	logger.Debug("subsystem ready", "component", "version index", "driver", cfg.Database.Driver)

	// --- Evaluation cache ---
	local, err := evalcache.NewLRU(cfg.Cache.Size)
	if err != nil {
		return nil, rt.fail(ctx, err)
	}
	var cache evalcache.Cache = local
	if cfg.Cache.RedisURL != "" {
		r, err := evalcache.NewRedis(cfg.Cache.RedisURL, cfg.Cache.TTL)
		switch {
		case err != nil:
			logger.Warn("redis cache disabled", "error", err)
		case r.Ping(ctx) != nil:
			logger.Warn("redis cache disabled: ping failed", "url", cfg.Cache.RedisURL)
			_ = r.Close()
		default:
			rt.Redis = r
			cache = &evalcache.Tiered{Local: local, Remote: r}
		}
	}

	// --- Signing ---
	if cfg.Signing.Enabled() {
		signer, err := signing.NewSignerFromSeed([]byte(cfg.Signing.Seed), cfg.Signing.KeyID)
		if err != nil {
			return nil, rt.fail(ctx, fmt.Errorf("signer: %w", err))
		}
		rt.Signer = signer
		logger.Debug("subsystem ready", "component", "signer", "key_id", signer.KeyID())
	}

	svc, err := New(Options{
		Registry:      artifacts.NewRegistry(blobs),
		Index:         idx,
		Cache:         cache,
		Signer:        rt.Signer,
		Observability: obs,
		Logger:        logger,
	})
	if err != nil {
		return nil, rt.fail(ctx, err)
	}
	rt.Service = svc
	return rt, nil
}

// fail releases whatever NewRuntime had started and returns err.
func (rt *Runtime) fail(ctx context.Context, err error) error {
	if cerr := rt.Close(ctx); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

// Close releases the runtime's connections and flushes telemetry.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Index != nil {
		errs = append(errs, rt.Index.Close())
	}
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	if rt.Observability != nil {
		errs = append(errs, rt.Observability.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
