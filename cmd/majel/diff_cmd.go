package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/builder"
)

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <from> <to>",
		Short: "Compare two artifacts effect by effect",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := readArtifact(args[0])
			if err != nil {
				return err
			}
			to, err := readArtifact(args[1])
			if err != nil {
				return err
			}
			d, err := builder.Diff(from, to)
			if err != nil {
				return err
			}
			return a.render(d, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "%s -> %s\n", d.From, d.To)
				if d.Empty() {
					_, _ = fmt.Fprintln(w, "no effect changes")
				}
				for _, id := range d.Added {
					_, _ = fmt.Fprintf(w, "+ %s\n", id)
				}
				for _, id := range d.Removed {
					_, _ = fmt.Fprintf(w, "- %s\n", id)
				}
				for _, id := range d.Changed {
					_, _ = fmt.Fprintf(w, "~ %s\n", id)
				}
				if d.Unmapped != 0 {
					_, _ = fmt.Fprintf(w, "unmapped: %+d\n", d.Unmapped)
				}
			})
		},
	}
}
