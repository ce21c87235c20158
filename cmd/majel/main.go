// Command majel builds, patches, verifies and evaluates officer effect
// artifacts.
//
// Exit codes:
//
//	0  success
//	1  domain failure (validation errors, rejected batch, failed verify)
//	2  usage or runtime error
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Guffawaffle/majel/pkg/config"
	"github.com/Guffawaffle/majel/pkg/observability"
)

// Set by -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	return 2
}

// exitError carries a non-default exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// failed reports a domain failure: the command ran, the answer is no.
func failed(format string, args ...any) error {
	return &exitError{code: 1, err: fmt.Errorf(format, args...)}
}

// app is the state shared by every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	output     string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "majel",
		Short: "Officer effect contract pipeline",
		Long: `majel turns a curated officer seed into a versioned, content-addressed
contract artifact, applies override batches to it, and scores crews
against mission intents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (overrides environment)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", formatText, "output format: text, json or yaml")

	root.AddCommand(
		newInitCmd(a),
		newValidateCmd(a),
		newBuildCmd(a),
		newApplyCmd(a),
		newEvaluateCmd(a),
		newDiffCmd(a),
		newVerifyCmd(a),
		newQueryCmd(a),
		newHistoryCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) setup() error {
	switch a.output {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}

	if a.configPath != "" {
		cfg, err := config.LoadFile(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Load()
	}
	a.logger = observability.NewLogger(a.stderr, a.cfg.LogLevel, a.cfg.LogFormat)
	return nil
}
