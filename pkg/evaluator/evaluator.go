// Package evaluator decides whether one effect applies in one target
// scenario.
//
// Every restriction and condition on an effect is checked; the most severe
// status wins and every contributing issue is kept. Condition keys this
// package does not know degrade to conditional, never to works.
package evaluator

import (
	"fmt"
	"strings"

	"github.com/Guffawaffle/majel/pkg/contracts"
)

// Issue types raised by the evaluator.
const (
	IssueNotApplicableToTargetKind      = "not_applicable_to_target_kind"
	IssueMissingRequiredTargetTag       = "missing_required_target_tag"
	IssueShipClassMismatch              = "ship_class_mismatch"
	IssueShipClassUnknown               = "ship_class_unknown"
	IssueEngagementMismatch             = "engagement_mismatch"
	IssueModeNotConfirmed               = "mode_not_confirmed"
	IssueMissingRequiredShipClass       = "missing_required_ship_class"
	IssueMissingRequiredTargetShipClass = "missing_required_target_ship_class"
	IssueMissingRequiredShipTag         = "missing_required_ship_tag"
	IssueRuntimeCondition               = "runtime_condition"
	IssueUnknownCondition               = "unknown_condition"
)

// builtinIssueTypes supply severity and text when no taxonomy entry exists.
var builtinIssueTypes = map[string]contracts.IssueTypeDef{
	IssueNotApplicableToTargetKind:      {ID: IssueNotApplicableToTargetKind, Severity: contracts.SeverityError, DefaultMessage: "Effect does not apply to this target kind"},
	IssueMissingRequiredTargetTag:       {ID: IssueMissingRequiredTargetTag, Severity: contracts.SeverityError, DefaultMessage: "Target is missing a required tag"},
	IssueShipClassMismatch:              {ID: IssueShipClassMismatch, Severity: contracts.SeverityError, DefaultMessage: "Effect is restricted to another ship class"},
	IssueShipClassUnknown:               {ID: IssueShipClassUnknown, Severity: contracts.SeverityWarn, DefaultMessage: "Ship class is unknown"},
	IssueEngagementMismatch:             {ID: IssueEngagementMismatch, Severity: contracts.SeverityWarn, DefaultMessage: "Effect applies in a different engagement"},
	IssueModeNotConfirmed:               {ID: IssueModeNotConfirmed, Severity: contracts.SeverityWarn, DefaultMessage: "Required combat mode is not confirmed"},
	IssueMissingRequiredShipClass:       {ID: IssueMissingRequiredShipClass, Severity: contracts.SeverityError, DefaultMessage: "Ship is not the required class"},
	IssueMissingRequiredTargetShipClass: {ID: IssueMissingRequiredTargetShipClass, Severity: contracts.SeverityError, DefaultMessage: "Target is not the required ship class"},
	IssueMissingRequiredShipTag:         {ID: IssueMissingRequiredShipTag, Severity: contracts.SeverityError, DefaultMessage: "Ship is missing a required tag"},
	IssueRuntimeCondition:               {ID: IssueRuntimeCondition, Severity: contracts.SeverityInfo, DefaultMessage: "Depends on combat state that cannot be known in advance"},
	IssueUnknownCondition:               {ID: IssueUnknownCondition, Severity: contracts.SeverityWarn, DefaultMessage: "Unrecognized condition"},
}

// EffectResult is the applicability of one effect.
type EffectResult struct {
	EffectID   string            `json:"effectId"`
	EffectKey  string            `json:"effectKey"`
	Status     contracts.Status  `json:"status"`
	Multiplier float64           `json:"multiplier"`
	Issues     []contracts.Issue `json:"issues"`
}

// Evaluator evaluates effects, taking issue wording from a taxonomy's
// issue-type table when one is supplied.
type Evaluator struct {
	issueTypes map[string]contracts.IssueTypeDef
}

// New returns an Evaluator. issueTypes may be nil.
func New(issueTypes map[string]contracts.IssueTypeDef) *Evaluator {
	return &Evaluator{issueTypes: issueTypes}
}

var std = New(nil)

// EvaluateEffect evaluates e in s with built-in issue wording.
func EvaluateEffect(e *contracts.Effect, s contracts.Scenario) EffectResult {
	return std.EvaluateEffect(e, s)
}

// EvaluateEffect evaluates e in s. Checks run in a fixed order: target
// kinds, target tags, own-ship class, then each condition.
func (ev *Evaluator) EvaluateEffect(e *contracts.Effect, s contracts.Scenario) EffectResult {
	r := EffectResult{
		EffectID:  e.EffectID,
		EffectKey: e.EffectKey,
		Status:    contracts.StatusWorks,
		Issues:    []contracts.Issue{},
	}
	raise := func(st contracts.Status, issueType, detail, conditionKey string) {
		r.Status = r.Status.Worst(st)
		r.Issues = append(r.Issues, ev.issue(e, issueType, detail, conditionKey))
	}

	if kinds := e.Targets.TargetKinds; len(kinds) > 0 && !contains(kinds, s.TargetKind) {
		raise(contracts.StatusBlocked, IssueNotApplicableToTargetKind,
			fmt.Sprintf("target kind %q, effect applies to %s", s.TargetKind, strings.Join(kinds, ", ")), "")
	}

	for _, tag := range e.Targets.TargetTags {
		if !s.HasTargetTag(tag) {
			raise(contracts.StatusBlocked, IssueMissingRequiredTargetTag, fmt.Sprintf("tag %q", tag), "")
		}
	}

	if want := e.Targets.ShipClass; want != nil {
		switch have := s.ShipClass(); {
		case have == "":
			raise(contracts.StatusConditional, IssueShipClassUnknown, fmt.Sprintf("effect requires %q", *want), "")
		case have != *want:
			raise(contracts.StatusBlocked, IssueShipClassMismatch, fmt.Sprintf("ship is %q, effect requires %q", have, *want), "")
		}
	}

	for _, c := range e.Conditions {
		st, issueType, detail := evaluateCondition(c, &s)
		if st != contracts.StatusWorks {
			raise(st, issueType, detail, c.ConditionKey)
		}
	}

	r.Multiplier = r.Status.Multiplier()
	return r
}

func (ev *Evaluator) issue(e *contracts.Effect, issueType, detail, conditionKey string) contracts.Issue {
	def, ok := ev.issueTypes[issueType]
	if !ok {
		def = builtinIssueTypes[issueType]
	}
	msg := def.DefaultMessage
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return contracts.Issue{
		Type:         issueType,
		Severity:     def.Severity,
		Message:      msg,
		EffectID:     e.EffectID,
		EffectKey:    e.EffectKey,
		ConditionKey: conditionKey,
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
