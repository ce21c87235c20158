package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/contracts"
)

type versionInfo struct {
	Version          string `json:"version"`
	Generator        string `json:"generator"`
	ArtifactSchema   string `json:"artifactSchema"`
	OverrideSchema   string `json:"overrideSchema"`
	Canonicalization string `json:"canonicalization"`
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{
				Version:          version,
				Generator:        builder.GeneratorVersion,
				ArtifactSchema:   contracts.ArtifactSchemaVersion,
				OverrideSchema:   contracts.OverrideSchemaVersion,
				Canonicalization: contracts.CanonicalizationScheme,
			}
			return a.render(info, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "majel %s (%s, artifact schema %s)\n", info.Version, info.Generator, info.ArtifactSchema)
			})
		},
	}
}
