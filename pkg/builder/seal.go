package builder

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/Guffawaffle/majel/pkg/canonicalize"
	"github.com/Guffawaffle/majel/pkg/contracts"
)

const versionDigestLen = 16

var (
	ErrNilArtifact       = errors.New("builder: artifact is nil")
	ErrMalformedVersion  = errors.New("builder: malformed artifact version")
	ErrVersionMismatch   = errors.New("builder: artifact version does not match content")
	ErrUnsupportedSchema = errors.New("builder: unsupported artifact schema version")
)

// ContentDigest is the sha256 digest of the artifact's canonical form with
// artifactVersion and generatedAt blanked, so neither feeds back into itself.
func ContentDigest(a *contracts.Artifact) (string, error) {
	if a == nil {
		return "", ErrNilArtifact
	}
	body := *a
	body.ArtifactVersion = ""
	body.GeneratedAt = ""
	d, err := canonicalize.Digest(&body)
	if err != nil {
		return "", fmt.Errorf("builder: digest artifact: %w", err)
	}
	return d, nil
}

// Version returns the artifactVersion the artifact's content implies:
// {schemaVersion}+sha256:{first 16 hex}.
func Version(a *contracts.Artifact) (string, error) {
	d, err := ContentDigest(a)
	if err != nil {
		return "", err
	}
	hex := strings.TrimPrefix(d, canonicalize.DigestPrefix)
	return fmt.Sprintf("%s+%s%s", a.SchemaVersion, canonicalize.DigestPrefix, hex[:versionDigestLen]), nil
}

// Seal recomputes and stores the artifact's version. Every producer of an
// artifact, the builder and the override applier alike, seals last.
func Seal(a *contracts.Artifact) (string, error) {
	v, err := Version(a)
	if err != nil {
		return "", err
	}
	a.ArtifactVersion = v
	return v, nil
}

// ParseVersion splits an artifactVersion into its schema version and digest.
func ParseVersion(v string) (*semver.Version, string, error) {
	schema, digest, ok := strings.Cut(v, "+")
	if !ok || !strings.HasPrefix(digest, canonicalize.DigestPrefix) {
		return nil, "", fmt.Errorf("%w: %q", ErrMalformedVersion, v)
	}
	hex := strings.TrimPrefix(digest, canonicalize.DigestPrefix)
	if len(hex) != versionDigestLen {
		return nil, "", fmt.Errorf("%w: %q", ErrMalformedVersion, v)
	}
	sv, err := semver.StrictNewVersion(schema)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q: %v", ErrMalformedVersion, v, err)
	}
	return sv, hex, nil
}

// Verify checks that the stored artifactVersion matches the content and that
// the schema version is one this build understands.
func Verify(a *contracts.Artifact) error {
	if a == nil {
		return ErrNilArtifact
	}
	sv, _, err := ParseVersion(a.ArtifactVersion)
	if err != nil {
		return err
	}
	supported := semver.MustParse(contracts.ArtifactSchemaVersion)
	if sv.Major() != supported.Major() {
		return fmt.Errorf("%w: %s", ErrUnsupportedSchema, sv)
	}
	want, err := Version(a)
	if err != nil {
		return err
	}
	if want != a.ArtifactVersion {
		return fmt.Errorf("%w: stored %s, computed %s", ErrVersionMismatch, a.ArtifactVersion, want)
	}
	return nil
}

// DiffReport lists effect-level differences between two artifacts.
type DiffReport struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Changed  []string `json:"changed"`
	Unmapped int      `json:"unmappedDelta"`
}

// Empty reports whether the artifacts carry the same effects.
func (d *DiffReport) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Diff compares two artifacts effect by effect using canonical digests.
func Diff(from, to *contracts.Artifact) (*DiffReport, error) {
	if from == nil || to == nil {
		return nil, ErrNilArtifact
	}
	a, err := effectDigests(from)
	if err != nil {
		return nil, err
	}
	b, err := effectDigests(to)
	if err != nil {
		return nil, err
	}

	r := &DiffReport{
		From:     from.ArtifactVersion,
		To:       to.ArtifactVersion,
		Added:    []string{},
		Removed:  []string{},
		Changed:  []string{},
		Unmapped: to.UnmappedCount() - from.UnmappedCount(),
	}
	for id, da := range a {
		db, ok := b[id]
		switch {
		case !ok:
			r.Removed = append(r.Removed, id)
		case da != db:
			r.Changed = append(r.Changed, id)
		}
	}
	for id := range b {
		if _, ok := a[id]; !ok {
			r.Added = append(r.Added, id)
		}
	}
	sort.Strings(r.Added)
	sort.Strings(r.Removed)
	sort.Strings(r.Changed)
	return r, nil
}

func effectDigests(a *contracts.Artifact) (map[string]string, error) {
	out := make(map[string]string, a.EffectCount())
	for _, o := range a.Officers {
		for _, ab := range o.Abilities {
			for i := range ab.Effects {
				d, err := canonicalize.Digest(&ab.Effects[i])
				if err != nil {
					return nil, fmt.Errorf("builder: digest effect %s: %w", ab.Effects[i].EffectID, err)
				}
				out[ab.Effects[i].EffectID] = d
			}
		}
	}
	return out, nil
}
