package evaluator

import (
	"fmt"

	"github.com/Guffawaffle/majel/pkg/contracts"
)

// conditionFunc reports the status of one condition and, when it is not
// works, the issue type and a detail string.
type conditionFunc func(c contracts.Condition, s *contracts.Scenario) (contracts.Status, string, string)

var conditionTable = map[string]conditionFunc{
	"requires_attacking": engagement(contracts.EngagementAttacking),
	"requires_defending": engagement(contracts.EngagementDefending),

	"requires_pvp":            mode("pvp", "pvp", "player_ship"),
	"requires_pve":            mode("pve", "pve", "hostile", "mission_npc"),
	"requires_station_target": mode("station target", "station", "station"),
	"requires_armada_target":  mode("armada target", "armada", "armada_target"),

	"requires_ship_class":        requireShipClass,
	"requires_target_ship_class": requireTargetShipClass,
	"requires_target_tag":        requireTargetTag,
	"requires_ship_tag":          requireShipTag,

	"at_combat_start":    always,
	"at_round_start":     always,
	"when_weapons_fire":  always,
	"per_round_stacking": always,

	"when_shields_depleted":  runtimeState("target_shields_depleted"),
	"when_hull_breached":     runtimeState("target_hull_breached"),
	"when_burning":           runtimeState("target_burning"),
	"below_health_threshold": runtimeState("target_below_health_threshold"),
}

func evaluateCondition(c contracts.Condition, s *contracts.Scenario) (contracts.Status, string, string) {
	fn, ok := conditionTable[c.ConditionKey]
	if !ok {
		return contracts.StatusConditional, IssueUnknownCondition, fmt.Sprintf("condition %q", c.ConditionKey)
	}
	return fn(c, s)
}

func works() (contracts.Status, string, string) { return contracts.StatusWorks, "", "" }

func always(contracts.Condition, *contracts.Scenario) (contracts.Status, string, string) {
	return works()
}

func engagement(want contracts.Engagement) conditionFunc {
	return func(_ contracts.Condition, s *contracts.Scenario) (contracts.Status, string, string) {
		switch s.Engagement {
		case want, contracts.EngagementAny, "":
			return works()
		}
		return contracts.StatusConditional, IssueEngagementMismatch,
			fmt.Sprintf("requires %s, scenario is %s", want, s.Engagement)
	}
}

// mode is satisfied by the scenario's target kind being one of kinds or its
// target tags carrying tag.
func mode(name, tag string, kinds ...string) conditionFunc {
	return func(_ contracts.Condition, s *contracts.Scenario) (contracts.Status, string, string) {
		if s.HasTargetTag(tag) || contains(kinds, s.TargetKind) {
			return works()
		}
		return contracts.StatusConditional, IssueModeNotConfirmed, fmt.Sprintf("%s not confirmed", name)
	}
}

func requireShipClass(c contracts.Condition, s *contracts.Scenario) (contracts.Status, string, string) {
	want := c.Params["shipClass"]
	have := s.ShipClass()
	if have != "" && (want == "" || have == want) {
		return works()
	}
	return contracts.StatusBlocked, IssueMissingRequiredShipClass, classDetail(want, have)
}

func requireTargetShipClass(c contracts.Condition, s *contracts.Scenario) (contracts.Status, string, string) {
	want := c.Params["shipClass"]
	have := s.TargetShipClass
	if have != "" && (want == "" || have == want) {
		return works()
	}
	return contracts.StatusBlocked, IssueMissingRequiredTargetShipClass, classDetail(want, have)
}

func requireTargetTag(c contracts.Condition, s *contracts.Scenario) (contracts.Status, string, string) {
	tag := c.Params["tag"]
	if tag != "" && s.HasTargetTag(tag) {
		return works()
	}
	return contracts.StatusBlocked, IssueMissingRequiredTargetTag, fmt.Sprintf("tag %q", tag)
}

func requireShipTag(c contracts.Condition, s *contracts.Scenario) (contracts.Status, string, string) {
	tag := c.Params["tag"]
	if tag != "" && s.HasShipTag(tag) {
		return works()
	}
	return contracts.StatusBlocked, IssueMissingRequiredShipTag, fmt.Sprintf("tag %q", tag)
}

// runtimeState conditions hold only once the named state tag is asserted.
func runtimeState(tag string) conditionFunc {
	return func(c contracts.Condition, s *contracts.Scenario) (contracts.Status, string, string) {
		if s.HasTargetTag(tag) {
			return works()
		}
		return contracts.StatusConditional, IssueRuntimeCondition, fmt.Sprintf("%s until %s", c.ConditionKey, tag)
	}
}

func classDetail(want, have string) string {
	if have == "" {
		have = "unknown"
	}
	if want == "" {
		return fmt.Sprintf("class is %s", have)
	}
	return fmt.Sprintf("requires %q, class is %s", want, have)
}
