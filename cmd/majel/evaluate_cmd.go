package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/crew"
	"github.com/Guffawaffle/majel/pkg/pipeline"
	"github.com/Guffawaffle/majel/pkg/taxonomy"
)

const latestVersion = "latest"

type evaluateFlags struct {
	seed        string
	intent      string
	captain     string
	bridge      []string
	targetClass string
	shipClass   string
	shipTags    []string
	store       bool
}

func newEvaluateCmd(a *app) *cobra.Command {
	var f evaluateFlags
	cmd := &cobra.Command{
		Use:   "evaluate <artifact>",
		Short: "Score a crew against a mission intent",
		Long: `Evaluate scores up to three officers (captain plus two bridge seats)
against an intent from the seed and reports a crew verdict.

With --store the argument is an artifact version, or "latest", looked up in
the configured version index instead of a file.`,
		Example: `  majel evaluate artifact.json --seed seed.json --intent hostile_grinding \
      --captain kirk --bridge spock --bridge mccoy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.evaluate(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.seed, "seed", "", "seed providing intents and issue wording (required)")
	cmd.Flags().StringVar(&f.intent, "intent", "", "intent id (required)")
	cmd.Flags().StringVar(&f.captain, "captain", "", "officer in the captain seat")
	cmd.Flags().StringArrayVar(&f.bridge, "bridge", nil, "officer in a bridge seat (repeatable, at most 2)")
	cmd.Flags().StringVar(&f.targetClass, "target-class", "", "override the intent's target ship class")
	cmd.Flags().StringVar(&f.shipClass, "ship-class", "", "class of the crew's own ship")
	cmd.Flags().StringSliceVar(&f.shipTags, "ship-tag", nil, "tags of the crew's own ship")
	cmd.Flags().BoolVar(&f.store, "store", false, "resolve the artifact from the configured store")
	_ = cmd.MarkFlagRequired("seed")
	_ = cmd.MarkFlagRequired("intent")
	return cmd
}

func (f evaluateFlags) request() (crew.Request, error) {
	if len(f.bridge) > 2 {
		return crew.Request{}, fmt.Errorf("at most 2 bridge officers, got %d", len(f.bridge))
	}
	req := crew.Request{Captain: f.captain, TargetClass: f.targetClass}
	if len(f.bridge) > 0 {
		req.Bridge1 = f.bridge[0]
	}
	if len(f.bridge) > 1 {
		req.Bridge2 = f.bridge[1]
	}
	if f.shipClass != "" || len(f.shipTags) > 0 {
		req.Ship = &contracts.ShipContext{Class: f.shipClass, Tags: f.shipTags}
	}
	return req, nil
}

func (a *app) evaluate(ctx context.Context, ref string, f evaluateFlags) error {
	req, err := f.request()
	if err != nil {
		return err
	}
	seed, err := a.loadSeed(f.seed)
	if err != nil {
		return err
	}
	intent, ok := findIntent(seed, f.intent)
	if !ok {
		return fmt.Errorf("unknown intent %q", f.intent)
	}

	var (
		svc *pipeline.Service
		art *contracts.Artifact
	)
	if f.store {
		rt, err := a.runtime(ctx)
		if err != nil {
			return err
		}
		defer a.closeRuntime(rt)
		svc = rt.Service
		if ref == latestVersion {
			art, err = rt.Latest(ctx)
		} else {
			art, err = rt.Load(ctx, ref)
		}
		if err != nil {
			return err
		}
	} else {
		art, err = readArtifact(ref)
		if err != nil {
			return err
		}
		svc, err = pipeline.New(pipeline.Options{Logger: a.logger})
		if err != nil {
			return err
		}
	}

	res, err := svc.Evaluate(ctx, pipeline.EvaluateInput{
		Artifact:   art,
		Intent:     intent,
		Request:    req,
		IssueTypes: taxonomy.NewIndex(seed.Taxonomy).IssueTypes(),
	})
	if errors.Is(err, crew.ErrEmptyCrew) {
		return fmt.Errorf("%w: pass --captain or --bridge", err)
	}
	if errors.Is(err, pipeline.ErrTaxonomyMismatch) {
		return failed("seed does not match artifact %s: %w", art.ArtifactVersion, err)
	}
	if err != nil {
		return err
	}
	return a.render(res, func(w io.Writer) { printCrew(w, res) })
}

func findIntent(seed *contracts.Seed, id string) (contracts.Intent, bool) {
	for _, in := range seed.Intents {
		if in.ID == id {
			return in, true
		}
	}
	return contracts.Intent{}, false
}

func printCrew(w io.Writer, res *crew.Result) {
	_, _ = fmt.Fprintf(w, "%s: %s (score %.2f)\n", res.IntentID, strings.ToUpper(string(res.Verdict)), res.TotalScore)
	for _, o := range res.Officers {
		name := o.OfficerName
		if name == "" {
			name = o.OfficerID
		}
		_, _ = fmt.Fprintf(w, "  %-9s %-20s %-8s %6.2f\n", o.Slot, name, o.Verdict, o.Score)
		for _, is := range o.TopIssues {
			_, _ = fmt.Fprintf(w, "      %s %s: %s\n", is.Severity, is.Type, is.Message)
		}
	}
	for _, line := range res.Summary {
		_, _ = fmt.Fprintf(w, "  * %s\n", line)
	}
}
