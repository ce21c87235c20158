// Package pipeline ties the pure core (validate, build, apply, evaluate) to
// storage, caching, signing and telemetry.
//
// The core packages never see a context, a store or a logger; everything
// with side effects happens here.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Guffawaffle/majel/pkg/artifacts"
	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/catalog"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/crew"
	"github.com/Guffawaffle/majel/pkg/evalcache"
	"github.com/Guffawaffle/majel/pkg/evaluator"
	"github.com/Guffawaffle/majel/pkg/observability"
	"github.com/Guffawaffle/majel/pkg/overrides"
	"github.com/Guffawaffle/majel/pkg/signing"
	"github.com/Guffawaffle/majel/pkg/store"
	"github.com/Guffawaffle/majel/pkg/taxonomy"
)

const catalogCacheSize = 16

var (
	ErrInvalidSeed = errors.New("pipeline: seed failed validation")
	ErrNoRegistry  = errors.New("pipeline: artifact registry is not configured")
	ErrNoIndex     = errors.New("pipeline: version index is not configured")

	ErrTaxonomyMismatch = errors.New("pipeline: issue types do not match the artifact's taxonomyRef")
)

// Options wires a Service. Everything is optional; a Service without a
// Registry can evaluate but not publish.
type Options struct {
	Registry      *artifacts.Registry
	Index         *store.VersionIndex
	Cache         evalcache.Cache
	Signer        *signing.Signer
	Observability *observability.Provider
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Service runs pipeline operations against configured infrastructure. It is
// safe for concurrent use.
type Service struct {
	registry *artifacts.Registry
	index    *store.VersionIndex
	cache    evalcache.Cache
	signer   *signing.Signer
	obs      *observability.Provider
	logger   *slog.Logger
	clock    func() time.Time

	bases    *keyedMutex
	catalogs *lru.Cache[string, *catalog.Catalog]
	flight   singleflight.Group
}

func New(opts Options) (*Service, error) {
	catalogs, err := lru.New[string, *catalog.Catalog](catalogCacheSize)
	if err != nil {
		return nil, fmt.Errorf("pipeline: catalog cache: %w", err)
	}
	s := &Service{
		registry: opts.Registry,
		index:    opts.Index,
		cache:    opts.Cache,
		signer:   opts.Signer,
		obs:      opts.Observability,
		logger:   opts.Logger,
		clock:    opts.Clock,
		bases:    newKeyedMutex(),
		catalogs: catalogs,
	}
	if s.obs == nil {
		s.obs = observability.Noop()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "pipeline")
	if s.clock == nil {
		s.clock = time.Now
	}
	return s, nil
}

// BuildResult is the outcome of Build.
type BuildResult struct {
	Report      *taxonomy.Report      `json:"report"`
	Artifact    *contracts.Artifact   `json:"-"`
	Record      *store.ArtifactRecord `json:"record,omitempty"`
	Attestation *signing.Attestation  `json:"attestation,omitempty"`
}

// Build validates seed, builds the artifact and publishes it. A seed with
// validation errors returns the report and ErrInvalidSeed; nothing is built.
func (s *Service) Build(ctx context.Context, seed *contracts.Seed, opts builder.Options) (res *BuildResult, err error) {
	ctx, finish := s.obs.TrackOperation(ctx, "majel.build")
	defer func() { finish(err) }()

	report := taxonomy.Validate(seed)
	res = &BuildResult{Report: report}
	if !report.OK() {
		s.logger.WarnContext(ctx, "seed rejected", "errors", report.Errors, "warnings", report.Warnings)
		return res, ErrInvalidSeed
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = s.clock()
	}

	a, err := builder.Build(seed, opts)
	if err != nil {
		return res, fmt.Errorf("pipeline: build: %w", err)
	}
	res.Artifact = a
	s.obs.RecordBuild(ctx, a.ArtifactVersion, a.EffectCount(), a.UnmappedCount())

	res.Record, res.Attestation, err = s.Publish(ctx, a, "")
	if err != nil {
		return res, err
	}
	s.logger.InfoContext(ctx, "artifact built",
		"artifact_version", a.ArtifactVersion,
		"officers", len(a.Officers),
		"effects", a.EffectCount(),
		"unmapped", a.UnmappedCount(),
	)
	return res, nil
}

// Publish stores a sealed artifact, signs it when a signer is configured and
// records it in the version index when one is configured. Publishing the
// same version twice only refreshes its attestation.
func (s *Service) Publish(ctx context.Context, a *contracts.Artifact, parentVersion string) (*store.ArtifactRecord, *signing.Attestation, error) {
	if s.registry == nil {
		return nil, nil, ErrNoRegistry
	}
	hash, err := s.registry.PutArtifact(ctx, a)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: store artifact: %w", err)
	}

	var att *signing.Attestation
	var attJSON string
	if s.signer != nil {
		att, err = s.signer.Attest(a)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: attest: %w", err)
		}
		b, err := json.Marshal(att)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: encode attestation: %w", err)
		}
		attJSON = string(b)
	}

	rec := &store.ArtifactRecord{
		Version:         a.ArtifactVersion,
		BlobHash:        hash,
		ParentVersion:   parentVersion,
		SnapshotVersion: a.Source.SnapshotVersion,
		EffectCount:     a.EffectCount(),
		UnmappedCount:   a.UnmappedCount(),
		Attestation:     attJSON,
		CreatedAt:       s.clock().UTC(),
	}
	if s.index != nil {
		if err := s.index.PutArtifact(ctx, *rec); err != nil {
			return nil, nil, fmt.Errorf("pipeline: index artifact: %w", err)
		}
		// PutArtifact keeps an existing row, which may predate the signer.
		if attJSON != "" {
			if err := s.index.SetAttestation(ctx, rec.Version, attJSON); err != nil {
				return nil, nil, fmt.Errorf("pipeline: index attestation: %w", err)
			}
		}
	}
	return rec, att, nil
}

// Load fetches a published artifact by version.
func (s *Service) Load(ctx context.Context, version string) (*contracts.Artifact, error) {
	if s.index == nil || s.registry == nil {
		return nil, ErrNoIndex
	}
	rec, err := s.index.GetArtifact(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return s.registry.GetArtifact(ctx, rec.BlobHash)
}

// Latest fetches the most recently published artifact.
func (s *Service) Latest(ctx context.Context) (*contracts.Artifact, error) {
	if s.index == nil || s.registry == nil {
		return nil, ErrNoIndex
	}
	rec, err := s.index.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return s.registry.GetArtifact(ctx, rec.BlobHash)
}

// ApplyOverrides applies file to base and publishes the result. Batches
// against the same base version run one at a time; a rejected batch leaves
// nothing behind.
func (s *Service) ApplyOverrides(ctx context.Context, base *contracts.Artifact, file *contracts.OverrideFile, idx *taxonomy.Index) (out *contracts.Artifact, receipt *overrides.Receipt, err error) {
	if base == nil || file == nil {
		return nil, nil, overrides.ErrInvalidInput
	}
	ctx, finish := s.obs.TrackOperation(ctx, "majel.apply",
		observability.ApplyOperation(base.ArtifactVersion, len(file.Operations))...)
	defer func() { finish(err) }()

	unlock := s.bases.Lock(base.ArtifactVersion)
	defer unlock()

	out, receipt, err = overrides.Apply(base, file, idx)
	if err != nil {
		var rejected *overrides.Error
		if errors.As(err, &rejected) {
			s.obs.RecordRejectedBatch(ctx, rejected.Reason())
		}
		s.logger.WarnContext(ctx, "override batch rejected",
			"base_version", base.ArtifactVersion,
			"operations", len(file.Operations),
			"error", err,
		)
		return nil, nil, err
	}
	observability.SetSpanAttributes(ctx, observability.AttrBatchID.String(receipt.BatchID))

	if _, _, err = s.Publish(ctx, out, base.ArtifactVersion); err != nil {
		return nil, nil, err
	}
	if s.index != nil {
		data, err := json.Marshal(receipt)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: encode receipt: %w", err)
		}
		if err := s.index.PutBatch(ctx, store.BatchRecord{
			BatchID:     receipt.BatchID,
			BatchDigest: receipt.BatchDigest,
			BaseVersion: receipt.BaseVersion,
			NewVersion:  receipt.NewVersion,
			Operations:  receipt.Operations,
			Receipt:     string(data),
			AppliedAt:   s.clock().UTC(),
		}); err != nil {
			return nil, nil, fmt.Errorf("pipeline: record batch: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "override batch applied",
		"batch_id", receipt.BatchID,
		"base_version", receipt.BaseVersion,
		"artifact_version", receipt.NewVersion,
		"operations", receipt.Operations,
	)
	return out, receipt, nil
}

// EvaluateInput is one crew evaluation.
type EvaluateInput struct {
	Artifact *contracts.Artifact
	Intent   contracts.Intent
	Request  crew.Request
	// IssueTypes supplies issue wording, normally the seed taxonomy's table.
	IssueTypes map[string]contracts.IssueTypeDef
}

// cacheRequest is the part of an evaluation that, together with the
// artifact version, determines its result. Issue types set severity and
// wording, so an evaluation with built-in wording is its own entry.
type cacheRequest struct {
	Intent     contracts.Intent                  `json:"intent"`
	Request    crew.Request                      `json:"request"`
	IssueTypes map[string]contracts.IssueTypeDef `json:"issueTypes"`
}

// issueTypesDigest pins an issue-type table the way the builder pins the
// seed's in taxonomyRef.
func issueTypesDigest(types map[string]contracts.IssueTypeDef) string {
	defs := make([]contracts.IssueTypeDef, 0, len(types))
	for _, d := range types {
		defs = append(defs, d)
	}
	return taxonomy.NewIndex(contracts.Taxonomy{IssueTypes: defs}).Digests().IssueTypesDigest
}

// Evaluate scores a crew. Results are cached by artifact version and
// request when a cache is configured; concurrent identical evaluations
// share one computation. A non-empty IssueTypes table must be the one the
// artifact was built against.
func (s *Service) Evaluate(ctx context.Context, in EvaluateInput) (res *crew.Result, err error) {
	if in.Artifact == nil {
		return nil, catalog.ErrNilArtifact
	}
	version := in.Artifact.ArtifactVersion
	ctx, finish := s.obs.TrackOperation(ctx, "majel.evaluate",
		observability.EvaluateOperation(version, in.Intent.ID, in.Request.Seated())...)
	defer func() { finish(err) }()

	if len(in.IssueTypes) > 0 && issueTypesDigest(in.IssueTypes) != in.Artifact.TaxonomyRef.IssueTypesDigest {
		return nil, ErrTaxonomyMismatch
	}

	key, err := evalcache.Key(version, cacheRequest{Intent: in.Intent, Request: in.Request, IssueTypes: in.IssueTypes})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		var cached crew.Result
		hit, err := evalcache.Load(ctx, s.cache, key, &cached)
		if err != nil {
			s.logger.WarnContext(ctx, "evaluation cache read failed", "error", err)
		}
		if hit {
			s.obs.RecordVerdict(ctx, string(cached.Verdict), true)
			return &cached, nil
		}
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		cat, err := s.catalog(in.Artifact)
		if err != nil {
			return nil, err
		}
		return crew.NewValidator(evaluator.New(in.IssueTypes)).Validate(ctx, in.Request, cat, in.Intent)
	})
	if err != nil {
		return nil, err
	}
	res = v.(*crew.Result)
	s.obs.RecordVerdict(ctx, string(res.Verdict), false)

	if s.cache != nil {
		if err := evalcache.Save(ctx, s.cache, key, res); err != nil {
			s.logger.WarnContext(ctx, "evaluation cache write failed", "error", err)
		}
	}
	s.logger.DebugContext(ctx, "crew evaluated",
		"artifact_version", version,
		"intent", in.Intent.ID,
		"verdict", res.Verdict,
		"score", res.TotalScore,
	)
	return res, nil
}

// catalog returns the indexed form of a, reusing one built for the same
// version.
func (s *Service) catalog(a *contracts.Artifact) (*catalog.Catalog, error) {
	if c, ok := s.catalogs.Get(a.ArtifactVersion); ok {
		return c, nil
	}
	c, err := catalog.New(a)
	if err != nil {
		return nil, err
	}
	s.catalogs.Add(a.ArtifactVersion, c)
	return c, nil
}
