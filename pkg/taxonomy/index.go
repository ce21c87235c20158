// Package taxonomy validates seed data against its closed vocabulary and
// provides constant-time lookups over that vocabulary for the builder, the
// override applier and the evaluator.
package taxonomy

import (
	"fmt"

	"github.com/Guffawaffle/majel/pkg/canonicalize"
	"github.com/Guffawaffle/majel/pkg/contracts"
)

// DefaultVersion is recorded in taxonomyRef when the taxonomy carries none.
const DefaultVersion = "0"

// Index is a read-only lookup view over a taxonomy.
type Index struct {
	tax           contracts.Taxonomy
	targetKinds   map[string]struct{}
	targetTags    map[string]struct{}
	shipClasses   map[string]struct{}
	slots         map[string]struct{}
	effectKeys    map[string]contracts.EffectKeyDef
	conditionKeys map[string]contracts.ConditionKeyDef
	issueTypes    map[string]contracts.IssueTypeDef
}

// NewIndex builds an Index. Duplicate ids collapse; Validate reports them.
func NewIndex(tax contracts.Taxonomy) *Index {
	idx := &Index{
		tax:           tax,
		targetKinds:   toSet(tax.TargetKinds),
		targetTags:    toSet(tax.TargetTags),
		shipClasses:   toSet(tax.ShipClasses),
		slots:         toSet(tax.Slots),
		effectKeys:    make(map[string]contracts.EffectKeyDef, len(tax.EffectKeys)),
		conditionKeys: make(map[string]contracts.ConditionKeyDef, len(tax.ConditionKeys)),
		issueTypes:    make(map[string]contracts.IssueTypeDef, len(tax.IssueTypes)),
	}
	for _, d := range tax.EffectKeys {
		idx.effectKeys[d.ID] = d
	}
	for _, d := range tax.ConditionKeys {
		idx.conditionKeys[d.ID] = d
	}
	for _, d := range tax.IssueTypes {
		idx.issueTypes[d.ID] = d
	}
	return idx
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// Taxonomy returns the taxonomy the index was built from.
func (x *Index) Taxonomy() contracts.Taxonomy { return x.tax }

func (x *Index) HasTargetKind(id string) bool { _, ok := x.targetKinds[id]; return ok }
func (x *Index) HasTargetTag(id string) bool  { _, ok := x.targetTags[id]; return ok }
func (x *Index) HasShipClass(id string) bool  { _, ok := x.shipClasses[id]; return ok }
func (x *Index) HasEffectKey(id string) bool  { _, ok := x.effectKeys[id]; return ok }

func (x *Index) HasConditionKey(id string) bool { _, ok := x.conditionKeys[id]; return ok }

// HasSlot reports whether slot is a recognized ability slot. When the
// taxonomy lists slots the slot must also appear there.
func (x *Index) HasSlot(slot string) bool {
	if contracts.SlotRank(slot) > 2 {
		return false
	}
	if len(x.slots) == 0 {
		return true
	}
	_, ok := x.slots[slot]
	return ok
}

func (x *Index) EffectKey(id string) (contracts.EffectKeyDef, bool) {
	d, ok := x.effectKeys[id]
	return d, ok
}

func (x *Index) ConditionKey(id string) (contracts.ConditionKeyDef, bool) {
	d, ok := x.conditionKeys[id]
	return d, ok
}

func (x *Index) IssueType(id string) (contracts.IssueTypeDef, bool) {
	d, ok := x.issueTypes[id]
	return d, ok
}

// IssueTypes returns the issue-type table keyed by id.
func (x *Index) IssueTypes() map[string]contracts.IssueTypeDef {
	out := make(map[string]contracts.IssueTypeDef, len(x.issueTypes))
	for k, v := range x.issueTypes {
		out[k] = v
	}
	return out
}

// Digests returns the taxonomyRef pinning this taxonomy: one digest per
// facet, each taken over the facet's sorted canonical form.
func (x *Index) Digests() contracts.TaxonomyRef {
	t := canonicalize.Seed(contracts.Seed{Taxonomy: x.tax}).Taxonomy
	version := t.Version
	if version == "" {
		version = DefaultVersion
	}
	return contracts.TaxonomyRef{
		Version:             version,
		Canonicalization:    contracts.CanonicalizationScheme,
		TargetKindsDigest:   canonicalize.MustDigest(emptyIfNil(t.TargetKinds)),
		TargetTagsDigest:    canonicalize.MustDigest(emptyIfNil(t.TargetTags)),
		ShipClassesDigest:   canonicalize.MustDigest(emptyIfNil(t.ShipClasses)),
		SlotsDigest:         canonicalize.MustDigest(emptyIfNil(t.Slots)),
		EffectKeysDigest:    canonicalize.MustDigest(append([]contracts.EffectKeyDef{}, t.EffectKeys...)),
		ConditionKeysDigest: canonicalize.MustDigest(append([]contracts.ConditionKeyDef{}, t.ConditionKeys...)),
		IssueTypesDigest:    canonicalize.MustDigest(append([]contracts.IssueTypeDef{}, t.IssueTypes...)),
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// RefError is a taxonomy reference that does not resolve.
type RefError struct {
	Field string
	Value string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("taxonomy: unknown %s %q", e.Field, e.Value)
}

// CheckEffect verifies every taxonomy reference an effect body makes and
// returns the first that does not resolve.
func (x *Index) CheckEffect(effectKey string, targets contracts.Targets, conds []contracts.Condition) error {
	if !x.HasEffectKey(effectKey) {
		return &RefError{Field: "effectKey", Value: effectKey}
	}
	for _, k := range targets.TargetKinds {
		if !x.HasTargetKind(k) {
			return &RefError{Field: "targetKind", Value: k}
		}
	}
	for _, tg := range targets.TargetTags {
		if !x.HasTargetTag(tg) {
			return &RefError{Field: "targetTag", Value: tg}
		}
	}
	if targets.ShipClass != nil && !x.HasShipClass(*targets.ShipClass) {
		return &RefError{Field: "shipClass", Value: *targets.ShipClass}
	}
	for _, c := range conds {
		if !x.HasConditionKey(c.ConditionKey) {
			return &RefError{Field: "conditionKey", Value: c.ConditionKey}
		}
	}
	return nil
}
