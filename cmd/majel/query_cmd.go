package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/catalog"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/query"
)

type effectMatch struct {
	OfficerID string            `json:"officerId"`
	AbilityID string            `json:"abilityId"`
	Slot      string            `json:"slot"`
	Effect    *contracts.Effect `json:"effect"`
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		where    string
		officers bool
	)
	cmd := &cobra.Command{
		Use:   "query <artifact>",
		Short: "Select effects or officers with a CEL expression",
		Long: `Query filters an artifact's effects with a CEL expression over the
variables officer, ability and effect. With --officers it filters officers
instead; each officer then carries its abilities and their effects.`,
		Example: `  majel query artifact.json --where 'effect.effectKey == "dodge"'
  majel query artifact.json --officers \
      --where 'officer.abilities.exists(a, a.effects.exists(e, e.effectKey == "armor"))'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := readArtifact(args[0])
			if err != nil {
				return err
			}
			cat, err := catalog.New(art)
			if err != nil {
				return err
			}
			eng, err := query.NewEngine()
			if err != nil {
				return err
			}
			if err := eng.Compile(where); err != nil {
				return badQuery(err)
			}

			if officers {
				list, err := eng.Officers(cat, where)
				if err != nil {
					return badQuery(err)
				}
				return a.render(list, func(w io.Writer) {
					for _, o := range list {
						_, _ = fmt.Fprintf(w, "%-20s %s\n", o.ID, o.Name)
					}
					_, _ = fmt.Fprintf(w, "%d officer(s)\n", len(list))
				})
			}

			rows, err := eng.Effects(cat, where)
			if err != nil {
				return badQuery(err)
			}
			matches := make([]effectMatch, 0, len(rows))
			for _, r := range rows {
				matches = append(matches, effectMatch{OfficerID: r.OfficerID, AbilityID: r.AbilityID, Slot: r.Slot, Effect: r.Effect})
			}
			return a.render(matches, func(w io.Writer) {
				for _, m := range matches {
					mag := "-"
					if m.Effect.Magnitude != nil {
						mag = fmt.Sprintf("%g", *m.Effect.Magnitude)
					}
					_, _ = fmt.Fprintf(w, "%-28s %-16s %-20s %s\n", m.Effect.EffectID, m.OfficerID, m.Effect.EffectKey, mag)
				}
				_, _ = fmt.Fprintf(w, "%d effect(s)\n", len(matches))
			})
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "CEL filter expression (required)")
	cmd.Flags().BoolVar(&officers, "officers", false, "filter officers instead of effects")
	_ = cmd.MarkFlagRequired("where")
	return cmd
}

// badQuery keeps compile and evaluation errors on the usage exit code but
// says which part failed.
func badQuery(err error) error {
	switch {
	case errors.Is(err, query.ErrCompile), errors.Is(err, query.ErrNotBool):
		return fmt.Errorf("invalid --where: %w", err)
	default:
		return err
	}
}
