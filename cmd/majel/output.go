package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/canonicalize"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/taxonomy"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// render writes v in the selected format. text prints the human form.
func (a *app) render(v any, text func(w io.Writer)) error {
	switch a.output {
	case formatJSON:
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		// Round-trip through JSON so field names follow the json tags, and
		// through a yaml.Node so key order survives.
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return err
		}
		blockStyle(&node)
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(a.stdout)
		return nil
	}
}

// blockStyle clears the flow and quoting styles a JSON document parses
// with. Strings that would read back as another type stay quoted because
// the encoder keeps their !!str tag.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func printIssues(w io.Writer, issues []contracts.ValidationIssue) {
	for _, is := range issues {
		path := is.Path
		if path == "" {
			path = "(document)"
		}
		_, _ = fmt.Fprintf(w, "%-5s %-22s %s: %s\n", is.Severity, is.Code, path, is.Message)
	}
}

// loadSeed reads and validates a seed document. A seed with validation
// errors is a domain failure; the issues go to stderr.
func (a *app) loadSeed(path string) (*contracts.Seed, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	seed, report, err := taxonomy.ValidateDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !report.OK() {
		printIssues(a.stderr, report.Issues)
		return nil, failed("%s: %d validation error(s)", path, report.Errors)
	}
	return seed, nil
}

// readArtifact reads a sealed artifact. A version mismatch is a domain
// failure.
func readArtifact(path string) (*contracts.Artifact, error) {
	art, err := decodeArtifact(path)
	if err != nil {
		return nil, err
	}
	if err := builder.Verify(art); err != nil {
		if errors.Is(err, builder.ErrVersionMismatch) {
			return nil, failed("%s: %w", path, err)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return art, nil
}

func decodeArtifact(path string) (*contracts.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var art contracts.Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &art, nil
}

// writeCanonical writes v as canonical JSON, the same bytes the artifact
// store keeps.
func writeCanonical(path string, v any) error {
	data, err := canonicalize.JCS(v)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// signaturePath is where build and apply put the attestation for out.
func signaturePath(out string) string { return out + ".sig" }

func coalesce(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
