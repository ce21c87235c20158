package taxonomy

import (
	"fmt"
	"math"

	"github.com/Guffawaffle/majel/pkg/contracts"
)

// Issue codes.
const (
	CodeDuplicateID       = "DUPLICATE_ID"
	CodeRequired          = "REQUIRED"
	CodeInvalidValue      = "INVALID_VALUE"
	CodeUnknownEffectKey  = "UNKNOWN_EFFECT_KEY"
	CodeUnknownTargetKind = "UNKNOWN_TARGET_KIND"
	CodeUnknownTargetTag  = "UNKNOWN_TARGET_TAG"
	CodeUnknownShipClass  = "UNKNOWN_SHIP_CLASS"
	CodeUnknownCondition  = "UNKNOWN_CONDITION_KEY"
	CodeUnknownSlot       = "UNKNOWN_SLOT"
	CodeInertWithEffects  = "INERT_WITH_EFFECTS"
	CodeNoEffects         = "NO_EFFECTS"
	CodeInvalidSpan       = "INVALID_SPAN"
	CodeSchema            = "SCHEMA"
)

// Report is the outcome of seed validation. Issues are data; the caller
// decides whether errors block a build.
type Report struct {
	Issues   []contracts.ValidationIssue `json:"issues"`
	Errors   int                         `json:"errors"`
	Warnings int                         `json:"warnings"`
}

// OK reports whether the seed has no error-severity issues.
func (r *Report) OK() bool { return r.Errors == 0 }

func (r *Report) addError(path, code, msg string) {
	r.Issues = append(r.Issues, contracts.ValidationIssue{
		Severity: contracts.SeverityError, Code: code, Path: path, Message: msg,
	})
	r.Errors++
}

func (r *Report) addWarning(path, code, msg string) {
	r.Issues = append(r.Issues, contracts.ValidationIssue{
		Severity: contracts.SeverityWarn, Code: code, Path: path, Message: msg,
	})
	r.Warnings++
}

// Validate checks a decoded seed for duplicate ids and dangling references.
// It never mutates seed.
func Validate(seed *contracts.Seed) *Report {
	r := &Report{Issues: []contracts.ValidationIssue{}}
	if seed == nil {
		r.addError("", CodeRequired, "seed is empty")
		return r
	}
	idx := NewIndex(seed.Taxonomy)

	validateTables(r, &seed.Taxonomy)
	validateIntents(r, idx, seed.Intents)
	validateAbilities(r, idx, seed.Officers)
	return r
}

func validateTables(r *Report, t *contracts.Taxonomy) {
	checkSet(r, "taxonomy.targetKinds", t.TargetKinds)
	checkSet(r, "taxonomy.targetTags", t.TargetTags)
	checkSet(r, "taxonomy.shipClasses", t.ShipClasses)
	checkSet(r, "taxonomy.slots", t.Slots)
	for i, s := range t.Slots {
		if contracts.SlotRank(s) > 2 {
			r.addError(fmt.Sprintf("taxonomy.slots[%d]", i), CodeUnknownSlot,
				fmt.Sprintf("slot %q is not one of cm, oa, bda", s))
		}
	}

	ids := make([]string, len(t.EffectKeys))
	for i, d := range t.EffectKeys {
		ids[i] = d.ID
	}
	checkTable(r, "taxonomy.effectKeys", ids)

	ids = make([]string, len(t.ConditionKeys))
	for i, d := range t.ConditionKeys {
		ids[i] = d.ID
	}
	checkTable(r, "taxonomy.conditionKeys", ids)

	ids = make([]string, len(t.IssueTypes))
	for i, d := range t.IssueTypes {
		ids[i] = d.ID
		switch d.Severity {
		case contracts.SeverityError, contracts.SeverityWarn, contracts.SeverityInfo:
		default:
			r.addError(fmt.Sprintf("taxonomy.issueTypes[%d].severity", i), CodeInvalidValue,
				fmt.Sprintf("invalid severity %q", d.Severity))
		}
	}
	checkTable(r, "taxonomy.issueTypes", ids)
}

func checkSet(r *Report, path string, values []string) {
	seen := make(map[string]int, len(values))
	for i, v := range values {
		p := fmt.Sprintf("%s[%d]", path, i)
		if v == "" {
			r.addError(p, CodeRequired, "empty id")
			continue
		}
		if first, dup := seen[v]; dup {
			r.addError(p, CodeDuplicateID, fmt.Sprintf("%q duplicates %s[%d]", v, path, first))
			continue
		}
		seen[v] = i
	}
}

func checkTable(r *Report, path string, ids []string) {
	seen := make(map[string]int, len(ids))
	for i, id := range ids {
		p := fmt.Sprintf("%s[%d].id", path, i)
		if id == "" {
			r.addError(p, CodeRequired, "id is required")
			continue
		}
		if first, dup := seen[id]; dup {
			r.addError(p, CodeDuplicateID, fmt.Sprintf("%q duplicates %s[%d]", id, path, first))
			continue
		}
		seen[id] = i
	}
}

func validateIntents(r *Report, idx *Index, intents []contracts.Intent) {
	seen := make(map[string]int, len(intents))
	for i, in := range intents {
		base := fmt.Sprintf("intents[%d]", i)
		if in.ID == "" {
			r.addError(base+".id", CodeRequired, "intent id is required")
		} else if first, dup := seen[in.ID]; dup {
			r.addError(base+".id", CodeDuplicateID, fmt.Sprintf("%q duplicates intents[%d]", in.ID, first))
		} else {
			seen[in.ID] = i
		}

		for j, w := range in.EffectWeights {
			p := fmt.Sprintf("%s.effectWeights[%d]", base, j)
			if !idx.HasEffectKey(w.EffectKey) {
				r.addError(p+".effectKey", CodeUnknownEffectKey, fmt.Sprintf("unknown effect key %q", w.EffectKey))
			}
			if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
				r.addError(p+".weight", CodeInvalidValue, "weight must be a finite number")
			}
		}

		ctx := in.DefaultContext
		if ctx == nil {
			continue
		}
		cbase := base + ".defaultContext"
		if ctx.TargetKind != "" && !idx.HasTargetKind(ctx.TargetKind) {
			r.addError(cbase+".targetKind", CodeUnknownTargetKind, fmt.Sprintf("unknown target kind %q", ctx.TargetKind))
		}
		for k, tag := range ctx.TargetTags {
			if !idx.HasTargetTag(tag) {
				r.addError(fmt.Sprintf("%s.targetTags[%d]", cbase, k), CodeUnknownTargetTag, fmt.Sprintf("unknown target tag %q", tag))
			}
		}
		if ctx.ShipClass != "" && !idx.HasShipClass(ctx.ShipClass) {
			r.addError(cbase+".shipClass", CodeUnknownShipClass, fmt.Sprintf("unknown ship class %q", ctx.ShipClass))
		}
		switch ctx.Engagement {
		case "", contracts.EngagementAttacking, contracts.EngagementDefending, contracts.EngagementAny:
		default:
			r.addError(cbase+".engagement", CodeInvalidValue, fmt.Sprintf("invalid engagement %q", ctx.Engagement))
		}
	}
}

func validateAbilities(r *Report, idx *Index, abilities []contracts.SeedAbility) {
	seen := make(map[string]int, len(abilities))
	for i := range abilities {
		ab := &abilities[i]
		base := fmt.Sprintf("officers[%d]", i)

		if ab.ID == "" {
			r.addError(base+".id", CodeRequired, "ability id is required")
		} else if first, dup := seen[ab.ID]; dup {
			r.addError(base+".id", CodeDuplicateID, fmt.Sprintf("%q duplicates officers[%d]", ab.ID, first))
		} else {
			seen[ab.ID] = i
		}
		if ab.OfficerID == "" {
			r.addError(base+".officerId", CodeRequired, "officer id is required")
		}
		if ab.Slot == "" {
			r.addError(base+".slot", CodeRequired, "slot is required")
		} else if !idx.HasSlot(ab.Slot) {
			r.addError(base+".slot", CodeUnknownSlot, fmt.Sprintf("unknown slot %q", ab.Slot))
		}
		if !ab.IsInert && ab.RawText == "" {
			r.addError(base+".rawText", CodeRequired, "raw text is required for a non-inert ability")
		}

		if ab.IsInert {
			if len(ab.Effects) > 0 {
				r.addError(base+".effects", CodeInertWithEffects,
					fmt.Sprintf("inert ability carries %d effects", len(ab.Effects)))
			}
			continue
		}
		if len(ab.Effects) == 0 {
			r.addWarning(base+".effects", CodeNoEffects, "non-inert ability has no effects")
			continue
		}
		validateEffects(r, idx, base, ab.Effects)
	}
}

func validateEffects(r *Report, idx *Index, base string, effects []contracts.SeedEffect) {
	seen := make(map[string]int, len(effects))
	for j := range effects {
		ef := &effects[j]
		p := fmt.Sprintf("%s.effects[%d]", base, j)

		if ef.ID != "" {
			if first, dup := seen[ef.ID]; dup {
				r.addError(p+".id", CodeDuplicateID, fmt.Sprintf("%q duplicates %s.effects[%d]", ef.ID, base, first))
			} else {
				seen[ef.ID] = j
			}
		}
		if ef.EffectKey == "" {
			r.addError(p+".effectKey", CodeRequired, "effect key is required")
		} else if !idx.HasEffectKey(ef.EffectKey) {
			r.addError(p+".effectKey", CodeUnknownEffectKey, fmt.Sprintf("unknown effect key %q", ef.EffectKey))
		}
		if ef.Magnitude != nil && (math.IsNaN(*ef.Magnitude) || math.IsInf(*ef.Magnitude, 0)) {
			r.addError(p+".magnitude", CodeInvalidValue, "magnitude must be a finite number")
		}
		for k, kind := range ef.TargetKinds {
			if !idx.HasTargetKind(kind) {
				r.addError(fmt.Sprintf("%s.targetKinds[%d]", p, k), CodeUnknownTargetKind, fmt.Sprintf("unknown target kind %q", kind))
			}
		}
		for k, tag := range ef.TargetTags {
			if !idx.HasTargetTag(tag) {
				r.addError(fmt.Sprintf("%s.targetTags[%d]", p, k), CodeUnknownTargetTag, fmt.Sprintf("unknown target tag %q", tag))
			}
		}
		if ef.ShipClass != "" && !idx.HasShipClass(ef.ShipClass) {
			r.addError(p+".shipClass", CodeUnknownShipClass, fmt.Sprintf("unknown ship class %q", ef.ShipClass))
		}
		for k, c := range ef.Conditions {
			if !idx.HasConditionKey(c.ConditionKey) {
				r.addError(fmt.Sprintf("%s.conditions[%d].conditionKey", p, k), CodeUnknownCondition,
					fmt.Sprintf("unknown condition key %q", c.ConditionKey))
			}
		}
		if ef.SourceSpan != nil && ef.SourceSpan.End < ef.SourceSpan.Start {
			r.addError(p+".sourceSpan", CodeInvalidSpan,
				fmt.Sprintf("span end %d precedes start %d", ef.SourceSpan.End, ef.SourceSpan.Start))
		}
	}
}
