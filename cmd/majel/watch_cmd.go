package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		out      string
		debounce time.Duration
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <seed>",
		Short: "Rebuild the artifact whenever the seed changes",
		Long: `Watch validates and builds the seed once, then again after every save.
Invalid seeds are reported and skipped; the last good artifact stays in
place. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			seedPath := args[0]
			last := ""
			w, err := watch.New(seedPath, func(ctx context.Context) error {
				seed, err := a.loadSeed(seedPath)
				if err != nil {
					return err
				}
				art, err := builder.Build(seed, builder.Options{
					GeneratedAt:     time.Now().UTC(),
					SnapshotVersion: a.cfg.SnapshotVersion,
					Locale:          a.cfg.Locale,
				})
				if err != nil {
					return err
				}
				if art.ArtifactVersion == last {
					return nil
				}
				last = art.ArtifactVersion
				if out != "" {
					if err := writeCanonical(out, art); err != nil {
						return err
					}
				}
				_, _ = fmt.Fprintf(a.stdout, "%s artifact %s (%d effects)\n",
					time.Now().Format(time.TimeOnly), art.ArtifactVersion, art.EffectCount())
				return nil
			}, watch.Options{Debounce: debounce, Interval: interval, Logger: a.logger})
			if err != nil {
				return err
			}
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write each new artifact to this file")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before rebuilding")
	cmd.Flags().DurationVar(&interval, "interval", watch.DefaultInterval, "minimum time between rebuilds")
	return cmd
}
