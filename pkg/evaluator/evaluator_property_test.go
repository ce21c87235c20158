//go:build property
// +build property

package evaluator_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/evaluator"
)

var conditionKeys = []any{
	"requires_attacking", "requires_defending",
	"requires_pvp", "requires_pve", "requires_station_target", "requires_armada_target",
	"requires_target_tag", "requires_ship_tag",
	"at_combat_start", "when_weapons_fire",
	"when_shields_depleted", "when_hull_breached",
	"made_up_condition",
}

func genScenario() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("hostile", "player_ship", "station", "armada_target", "mission_npc"),
		gen.OneConstOf(contracts.EngagementAttacking, contracts.EngagementDefending, contracts.EngagementAny),
		gen.SliceOf(gen.OneConstOf("pve", "pvp", "swarm", "borg")),
	).Map(func(v []any) contracts.Scenario {
		return contracts.Scenario{
			TargetKind: v[0].(string),
			Engagement: v[1].(contracts.Engagement),
			TargetTags: v[2].([]string),
			Ship:       &contracts.ShipContext{Class: "explorer", Tags: []string{"pvp"}},
		}
	})
}

func conditions(keys []string) []contracts.Condition {
	out := make([]contracts.Condition, len(keys))
	for i, k := range keys {
		out[i] = contracts.Condition{ConditionKey: k, Params: map[string]string{"tag": "swarm"}}
	}
	return out
}

// TestMostSevereStatusWins checks that an effect's status is the worst of
// the statuses its conditions produce alone and that no issue is dropped.
// Property: status(c1..cn) == worst(status(c1), ..., status(cn))
func TestMostSevereStatusWins(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("combined status is the worst single status", prop.ForAll(
		func(keys []string, s contracts.Scenario) bool {
			all := contracts.Effect{EffectID: "e", EffectKey: "damage_dealt", Conditions: conditions(keys)}
			got := evaluator.EvaluateEffect(&all, s)

			want := contracts.StatusWorks
			issues := 0
			for _, k := range keys {
				one := contracts.Effect{EffectID: "e", EffectKey: "damage_dealt", Conditions: conditions([]string{k})}
				r := evaluator.EvaluateEffect(&one, s)
				want = want.Worst(r.Status)
				issues += len(r.Issues)
			}
			return got.Status == want &&
				len(got.Issues) == issues &&
				got.Multiplier == want.Multiplier()
		},
		gen.SliceOf(gen.OneConstOf(conditionKeys...)),
		genScenario(),
	))

	properties.Property("adding a condition never improves the status", prop.ForAll(
		func(key string, s contracts.Scenario) bool {
			bare := contracts.Effect{EffectID: "e", EffectKey: "damage_dealt", Targets: contracts.Targets{TargetKinds: []string{"hostile"}}}
			gated := bare
			gated.Conditions = conditions([]string{key})
			return evaluator.EvaluateEffect(&gated, s).Status.Severity() >= evaluator.EvaluateEffect(&bare, s).Status.Severity()
		},
		gen.OneConstOf(conditionKeys...),
		genScenario(),
	))

	properties.TestingRun(t)
}
