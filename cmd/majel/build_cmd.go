package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/pipeline"
	"github.com/Guffawaffle/majel/pkg/signing"
	"github.com/Guffawaffle/majel/pkg/store"
)

type buildFlags struct {
	out      string
	store    bool
	snapshot string
	locale   string
}

type buildOutput struct {
	ArtifactVersion string                `json:"artifactVersion"`
	Officers        int                   `json:"officers"`
	Effects         int                   `json:"effects"`
	Unmapped        int                   `json:"unmapped"`
	Out             string                `json:"out,omitempty"`
	Record          *store.ArtifactRecord `json:"record,omitempty"`
	Attestation     *signing.Attestation  `json:"attestation,omitempty"`
}

func newBuildCmd(a *app) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build <seed>",
		Short: "Build a contract artifact from a seed",
		Long: `Build validates the seed and builds its contract artifact. With --store
the artifact is also published to the configured artifact store and version
index, and attested when a signing seed is configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.build(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.out, "out", "", "write the canonical artifact to this file")
	cmd.Flags().BoolVar(&f.store, "store", false, "publish to the configured store")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "game data snapshot version (default from config)")
	cmd.Flags().StringVar(&f.locale, "locale", "", "evidence locale (default from config)")
	return cmd
}

func (a *app) build(ctx context.Context, seedPath string, f buildFlags) error {
	seed, err := a.loadSeed(seedPath)
	if err != nil {
		return err
	}
	opts := builder.Options{
		GeneratedAt:     time.Now().UTC(),
		SnapshotVersion: coalesce(f.snapshot, a.cfg.SnapshotVersion),
		Locale:          coalesce(f.locale, a.cfg.Locale),
	}

	var (
		art *contracts.Artifact
		res = buildOutput{Out: f.out}
	)
	if f.store {
		rt, err := a.runtime(ctx)
		if err != nil {
			return err
		}
		defer a.closeRuntime(rt)
		built, err := rt.Build(ctx, seed, opts)
		if err != nil {
			return err
		}
		art = built.Artifact
		res.Record = built.Record
		res.Attestation = built.Attestation
	} else {
		art, err = builder.Build(seed, opts)
		if err != nil {
			return err
		}
	}

	res.ArtifactVersion = art.ArtifactVersion
	res.Officers = len(art.Officers)
	res.Effects = art.EffectCount()
	res.Unmapped = art.UnmappedCount()

	if f.out != "" {
		if err := writeCanonical(f.out, art); err != nil {
			return err
		}
		if res.Attestation != nil {
			if err := writeCanonical(signaturePath(f.out), res.Attestation); err != nil {
				return err
			}
		}
	}

	return a.render(res, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "artifact %s\n", res.ArtifactVersion)
		_, _ = fmt.Fprintf(w, "  officers %d, effects %d, unmapped %d\n", res.Officers, res.Effects, res.Unmapped)
		if res.Record != nil {
			_, _ = fmt.Fprintf(w, "  stored as %s\n", res.Record.BlobHash)
		}
		if res.Attestation != nil {
			_, _ = fmt.Fprintf(w, "  signed by %s\n", res.Attestation.KeyID)
		}
		if f.out != "" {
			_, _ = fmt.Fprintf(w, "  wrote %s\n", f.out)
		}
	})
}

func (a *app) runtime(ctx context.Context) (*pipeline.Runtime, error) {
	return pipeline.NewRuntime(ctx, a.cfg, a.logger)
}

func (a *app) closeRuntime(rt *pipeline.Runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Close(ctx); err != nil {
		a.logger.Warn("runtime shutdown", "error", err)
	}
}
