package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/overrides"
	"github.com/Guffawaffle/majel/pkg/signing"
	"github.com/Guffawaffle/majel/pkg/taxonomy"
)

type applyOutput struct {
	*overrides.Receipt
	Out         string               `json:"out,omitempty"`
	Attestation *signing.Attestation `json:"attestation,omitempty"`
}

func newApplyCmd(a *app) *cobra.Command {
	var (
		seedPath string
		out      string
		useStore bool
	)
	cmd := &cobra.Command{
		Use:   "apply <artifact> <overrides>",
		Short: "Apply an override batch to an artifact",
		Long: `Apply patches effects of a sealed artifact with a batch of replace_effect
operations. The batch is all-or-nothing: any failing operation rejects the
whole batch and nothing is written. The seed supplies the taxonomy the
replacement effects are checked against.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			base, err := readArtifact(args[0])
			if err != nil {
				return err
			}
			doc, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			file, issues, err := overrides.DecodeFile(doc)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			if len(issues) > 0 {
				printIssues(a.stderr, issues)
				return failed("%s: %d schema violation(s)", args[1], len(issues))
			}
			seed, err := a.loadSeed(seedPath)
			if err != nil {
				return err
			}
			idx := taxonomy.NewIndex(seed.Taxonomy)

			var (
				patched *contracts.Artifact
				receipt *overrides.Receipt
				res     applyOutput
			)
			if useStore {
				rt, err := a.runtime(ctx)
				if err != nil {
					return err
				}
				defer a.closeRuntime(rt)
				patched, receipt, err = rt.ApplyOverrides(ctx, base, file, idx)
				if err == nil && rt.Signer != nil {
					res.Attestation, err = rt.Signer.Attest(patched)
				}
				if err != nil {
					return rejected(err)
				}
			} else {
				patched, receipt, err = overrides.Apply(base, file, idx)
				if err != nil {
					return rejected(err)
				}
			}
			res.Receipt = receipt

			if out != "" {
				if err := writeCanonical(out, patched); err != nil {
					return err
				}
				if res.Attestation != nil {
					if err := writeCanonical(signaturePath(out), res.Attestation); err != nil {
						return err
					}
				}
				res.Out = out
			}

			return a.render(res, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "batch %s applied\n", receipt.BatchID)
				_, _ = fmt.Fprintf(w, "  %s -> %s\n", receipt.BaseVersion, receipt.NewVersion)
				for _, c := range receipt.Changes {
					_, _ = fmt.Fprintf(w, "  ~ %s (%s, %s)\n", c.EffectID, c.Reason, c.Author)
				}
				if out != "" {
					_, _ = fmt.Fprintf(w, "  wrote %s\n", out)
				}
			})
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "seed whose taxonomy the batch is checked against (required)")
	cmd.Flags().StringVar(&out, "out", "", "write the patched artifact to this file")
	cmd.Flags().BoolVar(&useStore, "store", false, "publish the result to the configured store")
	_ = cmd.MarkFlagRequired("seed")
	return cmd
}

// rejected maps a batch rejection to a domain failure and leaves other
// errors alone.
func rejected(err error) error {
	var oe *overrides.Error
	if errors.As(err, &oe) {
		return failed("batch rejected: %w", err)
	}
	return err
}
