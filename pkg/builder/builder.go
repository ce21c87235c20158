// Package builder turns a seed into a versioned contract artifact.
//
// Build is a pure function of the seed and Options: the same input always
// yields a byte-identical canonical artifact and the same artifactVersion.
package builder

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Guffawaffle/majel/pkg/canonicalize"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/taxonomy"
)

// GeneratorVersion identifies this builder in artifact source metadata.
const GeneratorVersion = "majel-builder/1"

const (
	inertFlagged        = "flagged_inert"
	defaultConfidence   = 1.0
	defaultTier         = "high"
	sourcePathRawText   = "rawText"
	unmappedAbilityConf = 0.0
)

var ErrNilSeed = errors.New("builder: seed is nil")

// Options carries the inputs to Build that are not part of the seed.
type Options struct {
	// GeneratedAt is stamped on the artifact. It never reaches the digest.
	GeneratedAt      time.Time
	SnapshotVersion  string
	Locale           string
	GeneratorVersion string
}

// Build constructs and seals the artifact for seed. Seeds should pass
// taxonomy.Validate first; effect keys that still fail to resolve become
// unknown_effect_key entries rather than errors.
func Build(seed *contracts.Seed, opts Options) (*contracts.Artifact, error) {
	if seed == nil {
		return nil, ErrNilSeed
	}
	canon := canonicalize.Seed(*seed)
	idx := taxonomy.NewIndex(canon.Taxonomy)

	if opts.GeneratorVersion == "" {
		opts.GeneratorVersion = GeneratorVersion
	}
	a := &contracts.Artifact{
		SchemaVersion: contracts.ArtifactSchemaVersion,
		Source: contracts.SourceInfo{
			SnapshotVersion:  opts.SnapshotVersion,
			Locale:           opts.Locale,
			GeneratorVersion: opts.GeneratorVersion,
		},
		TaxonomyRef: idx.Digests(),
		Officers:    []contracts.Officer{},
	}
	if !opts.GeneratedAt.IsZero() {
		a.GeneratedAt = opts.GeneratedAt.UTC().Format(time.RFC3339)
	}

	for _, grp := range groupByOfficer(canon.Officers) {
		officer := contracts.Officer{
			OfficerID:   grp.officerID,
			OfficerName: grp.officerName,
			Abilities:   make([]contracts.Ability, 0, len(grp.abilities)),
		}
		for i := range grp.abilities {
			officer.Abilities = append(officer.Abilities, buildAbility(idx, &grp.abilities[i], opts))
		}
		a.Officers = append(a.Officers, officer)
	}

	if _, err := Seal(a); err != nil {
		return nil, err
	}
	return a, nil
}

type officerGroup struct {
	officerID   string
	officerName string
	abilities   []contracts.SeedAbility
}

// groupByOfficer indexes abilities by officer once, then orders officers by
// id and abilities by slot (cm, oa, bda) then id.
func groupByOfficer(abilities []contracts.SeedAbility) []officerGroup {
	byID := make(map[string]*officerGroup)
	var order []string
	for _, ab := range abilities {
		g, ok := byID[ab.OfficerID]
		if !ok {
			g = &officerGroup{officerID: ab.OfficerID}
			byID[ab.OfficerID] = g
			order = append(order, ab.OfficerID)
		}
		if ab.OfficerName != "" && (g.officerName == "" || ab.OfficerName < g.officerName) {
			g.officerName = ab.OfficerName
		}
		g.abilities = append(g.abilities, ab)
	}
	sort.Strings(order)

	out := make([]officerGroup, 0, len(order))
	for _, id := range order {
		g := byID[id]
		if g.officerName == "" {
			g.officerName = g.officerID
		}
		sort.SliceStable(g.abilities, func(i, j int) bool {
			ri, rj := contracts.SlotRank(g.abilities[i].Slot), contracts.SlotRank(g.abilities[j].Slot)
			if ri != rj {
				return ri < rj
			}
			return g.abilities[i].ID < g.abilities[j].ID
		})
		out = append(out, *g)
	}
	return out
}

// Locator ranks, most specific first.
const (
	locatorSourceRef = iota
	locatorSpan
	locatorSegment
	locatorSynthetic
)

type locator struct {
	rank int
	key  string
}

func locate(ef *contracts.SeedEffect) locator {
	switch {
	case ef.SourceRef != "":
		return locator{locatorSourceRef, ef.SourceRef}
	case ef.SourceSpan != nil:
		return locator{locatorSpan, fmt.Sprintf("%010d:%010d", ef.SourceSpan.Start, ef.SourceSpan.End)}
	case ef.SourceSegment != "":
		return locator{locatorSegment, ef.SourceSegment}
	default:
		return locator{locatorSynthetic, "id:" + ef.ID}
	}
}

// orderEffects sorts a copy of effects by (locator rank, locator key, id,
// content digest). Effects equal on all four are identical, so their order
// cannot reach the artifact.
func orderEffects(effects []contracts.SeedEffect) []contracts.SeedEffect {
	type item struct {
		loc    locator
		digest string
		ef     contracts.SeedEffect
	}
	items := make([]item, len(effects))
	for i, ef := range effects {
		// A non-finite magnitude cannot be encoded; such effects tie on "".
		d, _ := canonicalize.Digest(ef)
		items[i] = item{loc: locate(&effects[i]), digest: d, ef: ef}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.loc.rank != b.loc.rank {
			return a.loc.rank < b.loc.rank
		}
		if a.loc.key != b.loc.key {
			return a.loc.key < b.loc.key
		}
		if a.ef.ID != b.ef.ID {
			return a.ef.ID < b.ef.ID
		}
		return a.digest < b.digest
	})
	out := make([]contracts.SeedEffect, len(items))
	for i, it := range items {
		out[i] = it.ef
	}
	return out
}

// EffectID is the stable id of the n-th locator-ordered effect of an ability.
func EffectID(abilityID string, n int) string {
	return fmt.Sprintf("%s:ef:src-%d", abilityID, n)
}

func buildAbility(idx *taxonomy.Index, ab *contracts.SeedAbility, opts Options) contracts.Ability {
	out := contracts.Ability{
		AbilityID: ab.ID,
		Slot:      ab.Slot,
		IsInert:   ab.IsInert,
		Name:      ab.Name,
		RawText:   ab.RawText,
		Effects:   []contracts.Effect{},
		Unmapped:  []contracts.Unmapped{},
	}
	if ab.IsInert {
		reason := inertFlagged
		out.InertReason = &reason
	}

	// Unresolved effects keep their sequence index so resolved ids do not
	// shift when the taxonomy later learns a key.
	for n, ef := range orderEffects(ab.Effects) {
		ev := evidenceFor(ab, &ef, n, opts)
		if !idx.HasEffectKey(ef.EffectKey) {
			out.Unmapped = append(out.Unmapped, contracts.Unmapped{
				Type:       contracts.UnmappedUnknownEffectKey,
				Severity:   contracts.SeverityError,
				Reason:     fmt.Sprintf("effect key %q is not in the taxonomy", ef.EffectKey),
				Confidence: seedConfidence(&ef).Score,
				Evidence:   []contracts.Evidence{ev},
			})
			continue
		}
		out.Effects = append(out.Effects, buildEffect(ab, &ef, n, ev))
	}

	if !ab.IsInert && len(out.Effects) == 0 && len(out.Unmapped) == 0 {
		out.Unmapped = append(out.Unmapped, contracts.Unmapped{
			Type:       contracts.UnmappedAbilityText,
			Severity:   contracts.SeverityWarn,
			Reason:     "ability text has no effect mapping",
			Confidence: unmappedAbilityConf,
			Evidence: []contracts.Evidence{{
				SourceRef:    "ability:" + ab.ID,
				Snippet:      ab.RawText,
				SourceLocale: opts.Locale,
				SourcePath:   sourcePathRawText,
			}},
		})
	}
	return out
}

func buildEffect(ab *contracts.SeedAbility, ef *contracts.SeedEffect, n int, ev contracts.Evidence) contracts.Effect {
	e := contracts.Effect{
		EffectID:  EffectID(ab.ID, n),
		EffectKey: ef.EffectKey,
		Magnitude: copyFloat(ef.Magnitude),
		Unit:      optString(ef.Unit),
		Stacking:  optString(ef.Stacking),
		Targets: contracts.Targets{
			TargetKinds: append([]string{}, ef.TargetKinds...),
			TargetTags:  append([]string{}, ef.TargetTags...),
			ShipClass:   optString(ef.ShipClass),
		},
		Conditions: append([]contracts.Condition{}, ef.Conditions...),
		Extraction: contracts.Extraction{
			Method:      contracts.ExtractionSeed,
			InputDigest: InputDigest(ab.RawText, ef.SourceRef, ef.ID),
		},
		Inferred:           ef.Inferred,
		PromotionReceiptID: copyString(ef.PromotionReceiptID),
		Confidence:         seedConfidence(ef),
		Evidence:           []contracts.Evidence{ev},
	}
	if x := ef.Extraction; x != nil {
		if x.Method != "" {
			e.Extraction.Method = x.Method
		}
		e.Extraction.RuleID = optString(x.RuleID)
		e.Extraction.Model = optString(x.Model)
		e.Extraction.PromptVersion = optString(x.PromptVersion)
	}
	e.Normalize()
	return e
}

// InputDigest binds an effect to the text and locator it was derived from.
func InputDigest(rawText, sourceRef, seedEffectID string) string {
	return canonicalize.MustDigest(map[string]string{
		"rawText":      rawText,
		"sourceRef":    sourceRef,
		"seedEffectId": seedEffectID,
	})
}

func evidenceFor(ab *contracts.SeedAbility, ef *contracts.SeedEffect, n int, opts Options) contracts.Evidence {
	offset := n
	ev := contracts.Evidence{
		SourceRef:    ef.SourceRef,
		Snippet:      ef.Snippet,
		SourceLocale: ef.SourceLocale,
		SourcePath:   sourcePathRawText,
		SourceOffset: &offset,
	}
	if ev.SourceRef == "" {
		ev.SourceRef = "ability:" + ab.ID
	}
	if ev.Snippet == "" {
		ev.Snippet = ab.RawText
	}
	if ev.SourceLocale == "" {
		ev.SourceLocale = opts.Locale
	}
	if ef.SourceSegment != "" {
		ev.SourcePath = ef.SourceSegment
	}
	if ef.Extraction != nil {
		ev.RuleID = optString(ef.Extraction.RuleID)
	}
	return ev
}

func seedConfidence(ef *contracts.SeedEffect) contracts.Confidence {
	c := contracts.Confidence{Score: defaultConfidence, Tier: defaultTier}
	if ef.Confidence != nil {
		c.Score = ef.Confidence.Score
		if ef.Confidence.Tier != "" {
			c.Tier = ef.Confidence.Tier
		}
	}
	return c
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
