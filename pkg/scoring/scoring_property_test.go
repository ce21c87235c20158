//go:build property
// +build property

package scoring_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/fixtures"
	"github.com/Guffawaffle/majel/pkg/scoring"
)

var effectKeys = []any{"damage_dealt", "crit_chance", "crit_damage", "dodge", "armor", "hull_health", "mining_rate"}

func score(t *testing.T, key string, magnitude float64, kinds []string, conds []contracts.Condition) float64 {
	intent, ok := fixtures.SampleIntent("hostile_grinding")
	if !ok {
		t.Fatal("sample seed has no hostile_grinding intent")
	}
	ef := contracts.Effect{
		EffectID:   "x-oa:ef:src-0",
		EffectKey:  key,
		Magnitude:  fixtures.Float(magnitude),
		Targets:    contracts.Targets{TargetKinds: kinds},
		Conditions: conds,
	}
	ef.Normalize()
	return scoring.ScoreOfficer(scoring.Input{
		OfficerID: "x",
		Abilities: []contracts.Ability{{AbilityID: "x-oa", Slot: contracts.SlotOfficerAbility, Effects: []contracts.Effect{ef}}},
		Role:      contracts.RoleBridge,
		Scenario:  intent.Scenario(),
		Weights:   intent.Weights(),
	}).Score
}

// TestScoringMonotonic checks that scores move the right way when inputs
// improve or worsen.
func TestScoringMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Property: m1 <= m2 => score(m1) <= score(m2)
	properties.Property("larger magnitude never scores lower", prop.ForAll(
		func(key string, m1, m2 float64) bool {
			if m1 > m2 {
				m1, m2 = m2, m1
			}
			return score(t, key, m1, nil, nil) <= score(t, key, m2, nil, nil)
		},
		gen.OneConstOf(effectKeys...),
		gen.Float64Range(0, 5),
		gen.Float64Range(0, 5),
	))

	// Property: score(restricted) <= score(unrestricted)
	properties.Property("restrictions never raise a score", prop.ForAll(
		func(key string, m float64, kind string, cond string) bool {
			free := score(t, key, m, nil, nil)
			gated := score(t, key, m, []string{kind}, []contracts.Condition{{ConditionKey: cond}})
			return gated <= free && gated >= 0
		},
		gen.OneConstOf(effectKeys...),
		gen.Float64Range(0, 5),
		gen.OneConstOf("hostile", "player_ship", "station"),
		gen.OneConstOf("requires_attacking", "requires_pvp", "when_hull_breached", "at_combat_start", "made_up_condition"),
	))

	properties.TestingRun(t)
}
