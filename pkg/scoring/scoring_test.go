package scoring

import (
	"math"
	"testing"

	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/fixtures"
)

func ability(id, slot string, effects ...contracts.Effect) contracts.Ability {
	for i := range effects {
		effects[i].Normalize()
	}
	return contracts.Ability{AbilityID: id, Slot: slot, Effects: effects}
}

func eff(id, key string, magnitude float64, kinds ...string) contracts.Effect {
	return contracts.Effect{
		EffectID:  id,
		EffectKey: key,
		Magnitude: fixtures.Float(magnitude),
		Targets:   contracts.Targets{TargetKinds: kinds},
	}
}

func grinding(t *testing.T) contracts.Intent {
	t.Helper()
	intent, ok := fixtures.SampleIntent("hostile_grinding")
	if !ok {
		t.Fatal("sample seed has no hostile_grinding intent")
	}
	return intent
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScoreOfficer_DamageBeatsDodgeAsCaptain(t *testing.T) {
	intent := grinding(t)

	dodge := ScoreOfficer(Input{
		OfficerID: "dodger",
		Abilities: []contracts.Ability{ability("dodger-cm", "cm", eff("dodger-cm:ef:src-0", "dodge", 0.2, "hostile"))},
		Role:      contracts.RoleCaptain,
		Scenario:  intent.Scenario(),
		Weights:   intent.Weights(),
	})
	damage := ScoreOfficer(Input{
		OfficerID: "hitter",
		Abilities: []contracts.Ability{ability("hitter-cm", "cm", eff("hitter-cm:ef:src-0", "damage_dealt", 0.2, "hostile"))},
		Role:      contracts.RoleCaptain,
		Scenario:  intent.Scenario(),
		Weights:   intent.Weights(),
	})

	if !near(dodge.Score, 0.1) {
		t.Fatalf("dodge score = %v, want 0.1", dodge.Score)
	}
	if !near(damage.Score, 0.6) {
		t.Fatalf("damage score = %v, want 0.6", damage.Score)
	}
	if damage.Score <= dodge.Score {
		t.Fatalf("damage officer (%v) should outscore dodge officer (%v)", damage.Score, dodge.Score)
	}
}

func TestScoreOfficer_CaptainManeuverOnlyForCaptain(t *testing.T) {
	abilities := []contracts.Ability{
		ability("o-cm", "cm", eff("o-cm:ef:src-0", "damage_dealt", 1)),
		ability("o-oa", "oa", eff("o-oa:ef:src-0", "damage_dealt", 1)),
		ability("o-bda", "bda", eff("o-bda:ef:src-0", "damage_dealt", 1)),
	}
	weights := map[string]float64{"damage_dealt": 1}

	captain := ScoreOfficer(Input{Abilities: abilities, Role: contracts.RoleCaptain, Weights: weights})
	bridge := ScoreOfficer(Input{Abilities: abilities, Role: contracts.RoleBridge, Weights: weights})

	if captain.Score != 3 {
		t.Fatalf("captain score = %v, want 3", captain.Score)
	}
	if bridge.Score != 2 {
		t.Fatalf("bridge score = %v, want 2", bridge.Score)
	}
	if bridge.Abilities[0].Eligible || len(bridge.Abilities[0].Effects) != 0 {
		t.Fatalf("captain maneuver should be ineligible on the bridge: %+v", bridge.Abilities[0])
	}
	if len(bridge.Abilities) != 3 {
		t.Fatalf("breakdown should list every ability, got %d", len(bridge.Abilities))
	}
}

func TestScoreOfficer_MissingWeightContributesZero(t *testing.T) {
	s := ScoreOfficer(Input{
		Abilities: []contracts.Ability{ability("m-oa", "oa", eff("m-oa:ef:src-0", "mining_rate", 0.5))},
		Role:      contracts.RoleBridge,
		Weights:   map[string]float64{"damage_dealt": 3},
	})
	if s.Score != 0 {
		t.Fatalf("score = %v, want 0", s.Score)
	}
	if s.Verdict != contracts.VerdictWorks {
		t.Fatalf("verdict = %s, want works", s.Verdict)
	}
}

func TestScoreOfficer_MissingMagnitudeCountsAsOne(t *testing.T) {
	e := contracts.Effect{EffectID: "x-oa:ef:src-0", EffectKey: "armor"}
	s := ScoreOfficer(Input{
		Abilities: []contracts.Ability{ability("x-oa", "oa", e)},
		Role:      contracts.RoleBridge,
		Weights:   map[string]float64{"armor": 2},
	})
	if s.Score != 2 {
		t.Fatalf("score = %v, want 2", s.Score)
	}
}

func TestScoreOfficer_IssuesAndVerdict(t *testing.T) {
	burning := eff("b-oa:ef:src-0", "crit_damage", 0.3)
	burning.Conditions = []contracts.Condition{{ConditionKey: "when_burning"}}
	station := eff("b-oa:ef:src-1", "damage_dealt", 0.1, "station")

	s := ScoreOfficer(Input{
		Abilities: []contracts.Ability{ability("b-oa", "oa", burning, station)},
		Role:      contracts.RoleBridge,
		Scenario:  contracts.Scenario{TargetKind: "hostile", Engagement: contracts.EngagementAttacking},
		Weights:   map[string]float64{"crit_damage": 2, "damage_dealt": 3},
	})

	if s.Verdict != contracts.VerdictPartial {
		t.Fatalf("verdict = %s, want partial", s.Verdict)
	}
	if s.Conditional != 1 || s.Blocked != 1 || s.Works != 0 {
		t.Fatalf("counts = %d/%d/%d", s.Works, s.Conditional, s.Blocked)
	}
	if len(s.Issues) != 2 {
		t.Fatalf("issues = %+v", s.Issues)
	}
	if !near(s.Score, 0.3*2*0.5) {
		t.Fatalf("score = %v", s.Score)
	}
}

func TestScoreOfficer_AllBlocked(t *testing.T) {
	s := ScoreOfficer(Input{
		Abilities: []contracts.Ability{ability("s-oa", "oa", eff("s-oa:ef:src-0", "damage_dealt", 0.1, "station"))},
		Role:      contracts.RoleBridge,
		Scenario:  contracts.Scenario{TargetKind: "hostile"},
		Weights:   map[string]float64{"damage_dealt": 3},
	})
	if s.Verdict != contracts.VerdictBlocked {
		t.Fatalf("verdict = %s, want blocked", s.Verdict)
	}
}

func TestScoreOfficer_NoAbilitiesIsUnknown(t *testing.T) {
	s := ScoreOfficer(Input{OfficerID: "ghost", Role: contracts.RoleCaptain})
	if s.Verdict != contracts.VerdictUnknown {
		t.Fatalf("verdict = %s, want unknown", s.Verdict)
	}
}

func TestContributionOrdering(t *testing.T) {
	m := fixtures.Float(0.4)
	works := Contribution(m, 2, contracts.StatusWorks.Multiplier())
	conditional := Contribution(m, 2, contracts.StatusConditional.Multiplier())
	blocked := Contribution(m, 2, contracts.StatusBlocked.Multiplier())
	if !(works >= conditional && conditional >= blocked && blocked == 0) {
		t.Fatalf("got %v, %v, %v", works, conditional, blocked)
	}
}
