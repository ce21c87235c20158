package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/taxonomy"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <seed>",
		Short: "Check a seed for schema errors and dangling taxonomy references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, report, err := taxonomy.ValidateDocument(doc)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			err = a.render(report, func(w io.Writer) {
				printIssues(w, report.Issues)
				_, _ = fmt.Fprintf(w, "%s: %d error(s), %d warning(s)\n", args[0], report.Errors, report.Warnings)
			})
			if err != nil {
				return err
			}
			if !report.OK() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}
