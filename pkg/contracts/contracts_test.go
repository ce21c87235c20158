package contracts

import (
	"encoding/json"
	"testing"
)

func TestStatus_WorstAndMultiplier(t *testing.T) {
	tests := []struct {
		a, b Status
		want Status
	}{
		{StatusWorks, StatusWorks, StatusWorks},
		{StatusWorks, StatusConditional, StatusConditional},
		{StatusConditional, StatusWorks, StatusConditional},
		{StatusConditional, StatusBlocked, StatusBlocked},
		{StatusBlocked, StatusWorks, StatusBlocked},
	}
	for _, tt := range tests {
		if got := tt.a.Worst(tt.b); got != tt.want {
			t.Errorf("%s.Worst(%s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}

	for st, want := range map[Status]float64{StatusWorks: 1, StatusConditional: 0.5, StatusBlocked: 0} {
		if got := st.Multiplier(); got != want {
			t.Errorf("%s.Multiplier() = %v, want %v", st, got, want)
		}
	}
}

func TestSlotRank(t *testing.T) {
	if !(SlotRank(SlotCaptainManeuver) < SlotRank(SlotOfficerAbility) &&
		SlotRank(SlotOfficerAbility) < SlotRank(SlotBelowDeck) &&
		SlotRank(SlotBelowDeck) < SlotRank("warp")) {
		t.Fatal("slot order must be cm, oa, bda, unknown")
	}
}

func TestIntent_Scenario(t *testing.T) {
	var bare Intent
	if s := bare.Scenario(); s.Engagement != EngagementAny || s.TargetKind != "" {
		t.Fatalf("bare intent scenario = %+v", s)
	}

	in := Intent{
		DefaultContext: &IntentContext{TargetKind: "hostile", TargetTags: []string{"swarm"}, ShipClass: "explorer"},
		EffectWeights:  []EffectWeight{{EffectKey: "armor", Weight: 1}, {EffectKey: "armor", Weight: 2}},
	}
	s := in.Scenario()
	if s.Engagement != EngagementAny || s.TargetShipClass != "explorer" || !s.HasTargetTag("swarm") {
		t.Fatalf("scenario = %+v", s)
	}
	s.TargetTags[0] = "borg"
	if in.DefaultContext.TargetTags[0] != "swarm" {
		t.Fatal("Scenario must copy target tags")
	}
	if w := in.Weights()["armor"]; w != 2 {
		t.Fatalf("armor weight = %v, want last entry 2", w)
	}
}

func TestScenario_Ship(t *testing.T) {
	var s Scenario
	if s.ShipClass() != "" || s.HasShipTag("pvp") {
		t.Fatal("nil ship has no class or tags")
	}
	s.Ship = &ShipContext{Class: "battleship", Tags: []string{"pvp"}}
	if s.ShipClass() != "battleship" || !s.HasShipTag("pvp") {
		t.Fatalf("ship = %+v", s.Ship)
	}
}

func TestEffect_NormalizeSerializesEmptyLists(t *testing.T) {
	e := Effect{EffectID: "a:ef:src-0", EffectKey: "armor"}
	e.Normalize()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["conditions"] == nil || m["evidence"] == nil {
		t.Fatalf("normalized lists must serialize as [], got %s", b)
	}
}

func TestArtifact_Counts(t *testing.T) {
	a := &Artifact{Officers: []Officer{{
		Abilities: []Ability{
			{AbilityID: "k-cm", Effects: make([]Effect, 2)},
			{AbilityID: "k-oa", Unmapped: make([]Unmapped, 1)},
		},
	}}}
	if a.EffectCount() != 2 || a.UnmappedCount() != 1 {
		t.Fatalf("counts = %d/%d", a.EffectCount(), a.UnmappedCount())
	}
	if i, j := a.FindAbility("k-oa"); i != 0 || j != 1 {
		t.Fatalf("FindAbility = %d,%d", i, j)
	}
	if i, j := a.FindAbility("nope"); i != -1 || j != -1 {
		t.Fatalf("FindAbility(nope) = %d,%d", i, j)
	}
}
