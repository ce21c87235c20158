package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/signing"
)

type verifyOutput struct {
	ArtifactVersion string `json:"artifactVersion"`
	Sealed          bool   `json:"sealed"`
	Signature       string `json:"signature,omitempty"` // valid, invalid
	KeyID           string `json:"keyId,omitempty"`
	Error           string `json:"error,omitempty"`
}

func (v verifyOutput) ok() bool { return v.Error == "" }

func newVerifyCmd(a *app) *cobra.Command {
	var sigPath, trustedKey string
	cmd := &cobra.Command{
		Use:   "verify <artifact>",
		Short: "Check an artifact's version seal and, optionally, its attestation",
		Long: `Verify recomputes the artifact's content digest and compares it with the
artifactVersion it carries. With --signature the detached attestation is
checked too; --key pins the expected public key (hex).

Exits 1 when any check fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := decodeArtifact(args[0])
			if err != nil {
				return err
			}
			res := verifyOutput{ArtifactVersion: art.ArtifactVersion}
			if err := builder.Verify(art); err != nil {
				res.Error = err.Error()
			} else {
				res.Sealed = true
			}

			if res.ok() && sigPath != "" {
				att, err := readAttestation(sigPath)
				if err != nil {
					return err
				}
				res.KeyID = att.KeyID
				if err := signing.Verify(art, att, trustedKey); err != nil {
					res.Signature = "invalid"
					res.Error = err.Error()
				} else {
					res.Signature = "valid"
				}
			}

			if err := a.render(res, func(w io.Writer) {
				status := "OK"
				if !res.ok() {
					status = "FAIL"
				}
				_, _ = fmt.Fprintf(w, "%s %s\n", status, res.ArtifactVersion)
				if res.Signature != "" {
					_, _ = fmt.Fprintf(w, "  signature %s (key %s)\n", res.Signature, res.KeyID)
				}
				if res.Error != "" {
					_, _ = fmt.Fprintf(w, "  %s\n", res.Error)
				}
			}); err != nil {
				return err
			}
			if !res.ok() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sigPath, "signature", "", "detached attestation file")
	cmd.Flags().StringVar(&trustedKey, "key", "", "require this public key (hex)")
	return cmd
}

func readAttestation(path string) (*signing.Attestation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var att signing.Attestation
	if err := json.Unmarshal(data, &att); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &att, nil
}
