package canonicalize

import (
	"sort"

	"github.com/Guffawaffle/majel/pkg/contracts"
)

// Seed returns a copy of seed with every order-insensitive collection sorted:
// taxonomy sets and tables, intents and their weights, and each effect's
// target lists and conditions. Ability and effect order is left alone; the
// builder orders those by business rules.
func Seed(seed contracts.Seed) contracts.Seed {
	out := contracts.Seed{
		Taxonomy: canonicalTaxonomy(seed.Taxonomy),
		Intents:  make([]contracts.Intent, len(seed.Intents)),
		Officers: make([]contracts.SeedAbility, len(seed.Officers)),
	}

	for i, in := range seed.Intents {
		cp := in
		cp.EffectWeights = append([]contracts.EffectWeight(nil), in.EffectWeights...)
		sort.SliceStable(cp.EffectWeights, func(a, b int) bool {
			return cp.EffectWeights[a].EffectKey < cp.EffectWeights[b].EffectKey
		})
		if in.DefaultContext != nil {
			ctx := *in.DefaultContext
			ctx.TargetTags = sortedStrings(ctx.TargetTags)
			cp.DefaultContext = &ctx
		}
		out.Intents[i] = cp
	}
	sort.SliceStable(out.Intents, func(a, b int) bool { return out.Intents[a].ID < out.Intents[b].ID })

	for i, ab := range seed.Officers {
		cp := ab
		cp.Effects = make([]contracts.SeedEffect, len(ab.Effects))
		for j, ef := range ab.Effects {
			e := ef
			e.TargetKinds = sortedStrings(ef.TargetKinds)
			e.TargetTags = sortedStrings(ef.TargetTags)
			e.Conditions = SortConditions(ef.Conditions)
			cp.Effects[j] = e
		}
		out.Officers[i] = cp
	}
	return out
}

func canonicalTaxonomy(t contracts.Taxonomy) contracts.Taxonomy {
	out := contracts.Taxonomy{
		Version:       t.Version,
		TargetKinds:   sortedStrings(t.TargetKinds),
		TargetTags:    sortedStrings(t.TargetTags),
		ShipClasses:   sortedStrings(t.ShipClasses),
		Slots:         sortedStrings(t.Slots),
		EffectKeys:    append([]contracts.EffectKeyDef(nil), t.EffectKeys...),
		ConditionKeys: make([]contracts.ConditionKeyDef, len(t.ConditionKeys)),
		IssueTypes:    append([]contracts.IssueTypeDef(nil), t.IssueTypes...),
	}
	sort.SliceStable(out.EffectKeys, func(a, b int) bool { return out.EffectKeys[a].ID < out.EffectKeys[b].ID })
	for i, ck := range t.ConditionKeys {
		ck.Params = sortedStrings(ck.Params)
		out.ConditionKeys[i] = ck
	}
	sort.SliceStable(out.ConditionKeys, func(a, b int) bool { return out.ConditionKeys[a].ID < out.ConditionKeys[b].ID })
	sort.SliceStable(out.IssueTypes, func(a, b int) bool { return out.IssueTypes[a].ID < out.IssueTypes[b].ID })
	return out
}

// SortConditions returns conditions ordered by their canonical serialization.
func SortConditions(conds []contracts.Condition) []contracts.Condition {
	if conds == nil {
		return nil
	}
	type keyed struct {
		key  string
		cond contracts.Condition
	}
	items := make([]keyed, len(conds))
	for i, c := range conds {
		key, err := JCSString(c)
		if err != nil {
			key = c.ConditionKey
		}
		items[i] = keyed{key: key, cond: c}
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].key < items[b].key })
	out := make([]contracts.Condition, len(items))
	for i, it := range items {
		out[i] = it.cond
	}
	return out
}

func sortedStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
