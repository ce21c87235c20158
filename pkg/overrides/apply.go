// Package overrides applies batches of replace_effect patches to a contract
// artifact.
//
// A batch is all-or-nothing. The base artifact is never modified: touched
// officers, abilities and effect lists are copied, everything else is shared
// with the result.
package overrides

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/canonicalize"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/taxonomy"
)

const (
	overrideConfidence = 1.0
	overrideTier       = "high"
)

var supportedSchema = semver.MustParse(contracts.OverrideSchemaVersion)

// Receipt records one applied batch.
type Receipt struct {
	BatchID     string   `json:"batchId"`
	BatchDigest string   `json:"batchDigest"`
	BaseVersion string   `json:"baseVersion"`
	NewVersion  string   `json:"newVersion"`
	Operations  int      `json:"operations"`
	Changes     []Change `json:"changes"`
}

// Change is the before/after digest of one replaced effect.
type Change struct {
	AbilityID    string  `json:"abilityId"`
	EffectID     string  `json:"effectId"`
	BeforeDigest string  `json:"beforeDigest"`
	AfterDigest  string  `json:"afterDigest"`
	Reason       string  `json:"reason"`
	Author       string  `json:"author"`
	Ticket       *string `json:"ticket,omitempty"`
}

// Apply applies file to base and returns the re-sealed result. On any error
// the returned artifact is nil and base is unchanged.
func Apply(base *contracts.Artifact, file *contracts.OverrideFile, idx *taxonomy.Index) (*contracts.Artifact, *Receipt, error) {
	if base == nil || file == nil || idx == nil {
		return nil, nil, batchErr(ErrInvalidInput, "base artifact, override file and taxonomy are required")
	}
	if err := checkBatch(base, file, idx); err != nil {
		return nil, nil, err
	}

	locs := make([]location, len(file.Operations))
	for i := range file.Operations {
		loc, err := checkOperation(base, idx, i, &file.Operations[i])
		if err != nil {
			return nil, nil, err
		}
		locs[i] = loc
	}

	batchDigest, err := canonicalize.Digest(file)
	if err != nil {
		return nil, nil, batchErr(ErrInvalidInput, err.Error())
	}

	out := newCOW(base)
	changes := make([]Change, 0, len(file.Operations))
	for i := range file.Operations {
		op := &file.Operations[i]
		ab := out.ability(locs[i].officer, locs[i].ability)
		before := ab.Effects[locs[i].effect]
		after := replacement(op)
		ab.Effects[locs[i].effect] = after

		beforeDigest, _ := canonicalize.Digest(&before)
		afterDigest, _ := canonicalize.Digest(&after)
		changes = append(changes, Change{
			AbilityID:    op.Target.AbilityID,
			EffectID:     op.Target.EffectID,
			BeforeDigest: beforeDigest,
			AfterDigest:  afterDigest,
			Reason:       op.Reason,
			Author:       op.Author,
			Ticket:       op.Ticket,
		})
	}

	if err := checkContradictions(out.artifact); err != nil {
		return nil, nil, err
	}
	newVersion, err := builder.Seal(out.artifact)
	if err != nil {
		return nil, nil, batchErr(ErrInvalidInput, err.Error())
	}

	return out.artifact, &Receipt{
		BatchID:     uuid.New().String(),
		BatchDigest: batchDigest,
		BaseVersion: base.ArtifactVersion,
		NewVersion:  newVersion,
		Operations:  len(file.Operations),
		Changes:     changes,
	}, nil
}

// checkBatch runs the preconditions that apply to the batch as a whole.
func checkBatch(base *contracts.Artifact, file *contracts.OverrideFile, idx *taxonomy.Index) error {
	v, err := semver.StrictNewVersion(file.SchemaVersion)
	if err != nil {
		return &Error{Op: -1, Err: ErrSchemaVersion, Detail: fmt.Sprintf("%q", file.SchemaVersion), Cause: err}
	}
	if !v.Equal(supportedSchema) {
		return batchErr(ErrSchemaVersion, fmt.Sprintf("got %s, want %s", v, supportedSchema))
	}

	if file.ArtifactBase != contracts.ArtifactBaseAny && file.ArtifactBase != base.ArtifactVersion {
		return batchErr(ErrStaleBase, fmt.Sprintf("batch targets %s, artifact is %s", file.ArtifactBase, base.ArtifactVersion))
	}

	if idx.Digests() != base.TaxonomyRef {
		return batchErr(ErrTaxonomyMismatch, "supplied taxonomy digests differ from the artifact's taxonomyRef")
	}

	seen := make(map[contracts.OverrideTarget]int, len(file.Operations))
	for i := range file.Operations {
		op := &file.Operations[i]
		if first, dup := seen[op.Target]; dup {
			return opErr(i, op, ErrDuplicateTarget, fmt.Sprintf("also targeted by operation %d", first))
		}
		seen[op.Target] = i
		if op.Op != contracts.OpReplaceEffect {
			return opErr(i, op, ErrUnsupportedOp, fmt.Sprintf("%q", op.Op))
		}
	}
	return nil
}

type location struct {
	officer, ability, effect int
}

func checkOperation(base *contracts.Artifact, idx *taxonomy.Index, i int, op *contracts.OverrideOperation) (location, error) {
	v := &op.Value
	if err := idx.CheckEffect(v.EffectKey, v.Targets, v.Conditions); err != nil {
		e := opErr(i, op, ErrTaxonomyRef, "")
		e.Cause = err
		return location{}, e
	}
	if len(v.Evidence) == 0 {
		return location{}, opErr(i, op, ErrMissingEvidence, "at least one evidence entry is required")
	}

	oi, ai := base.FindAbility(op.Target.AbilityID)
	if oi < 0 {
		return location{}, opErr(i, op, ErrUnknownTarget, "no such ability")
	}
	for ei, ef := range base.Officers[oi].Abilities[ai].Effects {
		if ef.EffectID == op.Target.EffectID {
			return location{oi, ai, ei}, nil
		}
	}
	return location{}, opErr(i, op, ErrUnknownTarget, "no such effect in ability")
}

// replacement builds the effect that takes the target's place.
func replacement(op *contracts.OverrideOperation) contracts.Effect {
	v := op.Value
	e := contracts.Effect{
		EffectID:  op.Target.EffectID,
		EffectKey: v.EffectKey,
		Magnitude: clonePtr(v.Magnitude),
		Unit:      clonePtr(v.Unit),
		Stacking:  clonePtr(v.Stacking),
		Targets: contracts.Targets{
			TargetKinds: append([]string{}, v.Targets.TargetKinds...),
			TargetTags:  append([]string{}, v.Targets.TargetTags...),
			ShipClass:   clonePtr(v.Targets.ShipClass),
		},
		Conditions: canonicalize.SortConditions(append([]contracts.Condition{}, v.Conditions...)),
		Extraction: contracts.Extraction{
			Method:      contracts.ExtractionOverridden,
			InputDigest: canonicalize.MustDigest(&v),
		},
		Inferred:           false,
		PromotionReceiptID: nil,
		Confidence: contracts.Confidence{
			Score:            overrideConfidence,
			Tier:             overrideTier,
			ForcedByOverride: true,
		},
		Evidence: append([]contracts.Evidence{}, v.Evidence...),
	}
	if x := v.Extraction; x != nil {
		e.Extraction.RuleID = clonePtr(x.RuleID)
		e.Extraction.Model = clonePtr(x.Model)
		e.Extraction.PromptVersion = clonePtr(x.PromptVersion)
	}
	if c := v.Confidence; c != nil {
		e.Confidence.Score = c.Score
		if c.Tier != "" {
			e.Confidence.Tier = c.Tier
		}
	}
	e.Normalize()
	return e
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cow is a copy-on-write view of an artifact.
type cow struct {
	artifact        *contracts.Artifact
	copiedOfficers  map[int]bool
	copiedAbilities map[[2]int]bool
}

func newCOW(base *contracts.Artifact) *cow {
	a := *base
	a.Officers = append([]contracts.Officer(nil), base.Officers...)
	return &cow{
		artifact:        &a,
		copiedOfficers:  make(map[int]bool),
		copiedAbilities: make(map[[2]int]bool),
	}
}

// ability returns a private, writable ability at (oi, ai).
func (c *cow) ability(oi, ai int) *contracts.Ability {
	o := &c.artifact.Officers[oi]
	if !c.copiedOfficers[oi] {
		o.Abilities = append([]contracts.Ability(nil), o.Abilities...)
		c.copiedOfficers[oi] = true
	}
	ab := &o.Abilities[ai]
	key := [2]int{oi, ai}
	if !c.copiedAbilities[key] {
		ab.Effects = append([]contracts.Effect(nil), ab.Effects...)
		c.copiedAbilities[key] = true
	}
	return ab
}
