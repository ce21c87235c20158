// Package scoring turns effect evaluations into an officer score for one
// intent.
//
// Each effect contributes magnitude × weight × multiplier, where weight comes
// from the intent's effect-weight table (0 when absent) and multiplier from
// the effect's evaluated status. Captain maneuvers only count for the officer
// seated as captain.
package scoring

import (
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/evaluator"
)

// Input is everything needed to score one seated officer.
type Input struct {
	OfficerID string
	Abilities []contracts.Ability
	Role      contracts.Role
	Scenario  contracts.Scenario
	Weights   map[string]float64

	// Evaluator supplies issue wording; nil uses the built-in table.
	Evaluator *evaluator.Evaluator
}

// EffectScore is one evaluated effect and what it adds to the total.
type EffectScore struct {
	evaluator.EffectResult
	Magnitude    float64 `json:"magnitude"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// AbilityScore is the breakdown of one ability. Ineligible abilities are
// listed with a zero score and no effects.
type AbilityScore struct {
	AbilityID string        `json:"abilityId"`
	Slot      string        `json:"slot"`
	Eligible  bool          `json:"eligible"`
	Score     float64       `json:"score"`
	Effects   []EffectScore `json:"effects"`
}

// OfficerScore is the scored result for one officer.
type OfficerScore struct {
	OfficerID string            `json:"officerId"`
	Role      contracts.Role    `json:"role"`
	Score     float64           `json:"score"`
	Verdict   contracts.Verdict `json:"verdict"`
	Abilities []AbilityScore    `json:"abilities"`
	Issues    []contracts.Issue `json:"issues"`

	// Counts of evaluated effects by status.
	Works       int `json:"works"`
	Conditional int `json:"conditional"`
	Blocked     int `json:"blocked"`
}

// Eligible reports whether an ability in slot counts for an officer in role.
func Eligible(slot string, role contracts.Role) bool {
	if slot == contracts.SlotCaptainManeuver {
		return role == contracts.RoleCaptain
	}
	return true
}

// Contribution is magnitude × weight × multiplier. A missing magnitude
// counts as 1.
func Contribution(magnitude *float64, weight, multiplier float64) float64 {
	m := 1.0
	if magnitude != nil {
		m = *magnitude
	}
	return m * weight * multiplier
}

// ScoreOfficer evaluates every effect of every eligible ability.
func ScoreOfficer(in Input) OfficerScore {
	ev := in.Evaluator
	if ev == nil {
		ev = evaluator.New(nil)
	}

	out := OfficerScore{
		OfficerID: in.OfficerID,
		Role:      in.Role,
		Abilities: make([]AbilityScore, 0, len(in.Abilities)),
		Issues:    []contracts.Issue{},
	}

	for i := range in.Abilities {
		ab := &in.Abilities[i]
		as := AbilityScore{
			AbilityID: ab.AbilityID,
			Slot:      ab.Slot,
			Eligible:  Eligible(ab.Slot, in.Role),
			Effects:   []EffectScore{},
		}
		if as.Eligible {
			for j := range ab.Effects {
				e := &ab.Effects[j]
				r := ev.EvaluateEffect(e, in.Scenario)
				w := in.Weights[e.EffectKey]
				es := EffectScore{
					EffectResult: r,
					Magnitude:    1.0,
					Weight:       w,
					Contribution: Contribution(e.Magnitude, w, r.Multiplier),
				}
				if e.Magnitude != nil {
					es.Magnitude = *e.Magnitude
				}
				as.Score += es.Contribution
				as.Effects = append(as.Effects, es)
				out.Issues = append(out.Issues, r.Issues...)

				switch r.Status {
				case contracts.StatusWorks:
					out.Works++
				case contracts.StatusConditional:
					out.Conditional++
				default:
					out.Blocked++
				}
			}
		}
		out.Score += as.Score
		out.Abilities = append(out.Abilities, as)
	}

	out.Verdict = verdict(len(in.Abilities), out.Works, out.Conditional, out.Blocked)
	return out
}

func verdict(abilities, works, conditional, blocked int) contracts.Verdict {
	switch {
	case abilities == 0:
		return contracts.VerdictUnknown
	case conditional == 0 && blocked == 0:
		return contracts.VerdictWorks
	case works == 0 && conditional == 0:
		return contracts.VerdictBlocked
	default:
		return contracts.VerdictPartial
	}
}
