package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/store"
)

type historyEntry struct {
	Version         string    `json:"version"`
	ParentVersion   string    `json:"parentVersion,omitempty"`
	SnapshotVersion string    `json:"snapshotVersion,omitempty"`
	Effects         int       `json:"effects"`
	Unmapped        int       `json:"unmapped"`
	Signed          bool      `json:"signed"`
	CreatedAt       time.Time `json:"createdAt"`
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [version]",
		Short: "List published artifact versions or trace one back to its build",
		Long: `History reads the version index. Without an argument it lists the most
recently published versions. With a version it follows parent links from
that version back to the build it was patched from, newest first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			ctx := cmd.Context()
			rt, err := a.runtime(ctx)
			if err != nil {
				return err
			}
			defer a.closeRuntime(rt)

			var records []store.ArtifactRecord
			if len(args) == 1 {
				records, err = rt.Index.Lineage(ctx, args[0])
			} else {
				records, err = rt.Index.ListArtifacts(ctx, limit)
			}
			if err != nil {
				return err
			}

			entries := make([]historyEntry, 0, len(records))
			for _, r := range records {
				entries = append(entries, historyEntry{
					Version:         r.Version,
					ParentVersion:   r.ParentVersion,
					SnapshotVersion: r.SnapshotVersion,
					Effects:         r.EffectCount,
					Unmapped:        r.UnmappedCount,
					Signed:          r.Attestation != "",
					CreatedAt:       r.CreatedAt,
				})
			}
			return a.render(entries, func(w io.Writer) {
				for _, e := range entries {
					signed := ""
					if e.Signed {
						signed = ", signed"
					}
					_, _ = fmt.Fprintf(w, "%s  %s  effects %d, unmapped %d%s\n",
						e.CreatedAt.Format(time.RFC3339), e.Version, e.Effects, e.Unmapped, signed)
					if e.ParentVersion != "" {
						_, _ = fmt.Fprintf(w, "  patched from %s\n", e.ParentVersion)
					}
				}
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(w, "no published versions")
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "versions to list when no version is given")
	return cmd
}
