// Package contracts holds the documents the pipeline reads and writes:
// seeds, contract artifacts, override batches and evaluation results.
package contracts

// Ability slots. A Majel officer carries at most one ability per slot.
const (
	SlotCaptainManeuver = "cm"
	SlotOfficerAbility  = "oa"
	SlotBelowDeck       = "bda"
)

// SlotRank orders ability slots inside an officer: cm, oa, bda.
// Unknown slots sort last.
func SlotRank(slot string) int {
	switch slot {
	case SlotCaptainManeuver:
		return 0
	case SlotOfficerAbility:
		return 1
	case SlotBelowDeck:
		return 2
	default:
		return 3
	}
}

// Seed is the raw input of the effects pipeline: the taxonomy, the intents
// scored against it, and the per-ability effect mappings.
type Seed struct {
	Taxonomy Taxonomy      `json:"taxonomy" yaml:"taxonomy"`
	Intents  []Intent      `json:"intents" yaml:"intents"`
	Officers []SeedAbility `json:"officers" yaml:"officers"` // one entry per ability
}

// Taxonomy is the closed vocabulary everything else is validated against.
type Taxonomy struct {
	Version       string            `json:"version,omitempty" yaml:"version,omitempty"`
	TargetKinds   []string          `json:"targetKinds" yaml:"targetKinds"`
	TargetTags    []string          `json:"targetTags" yaml:"targetTags"`
	ShipClasses   []string          `json:"shipClasses" yaml:"shipClasses"`
	Slots         []string          `json:"slots" yaml:"slots"`
	EffectKeys    []EffectKeyDef    `json:"effectKeys" yaml:"effectKeys"`
	ConditionKeys []ConditionKeyDef `json:"conditionKeys" yaml:"conditionKeys"`
	IssueTypes    []IssueTypeDef    `json:"issueTypes" yaml:"issueTypes"`
}

type EffectKeyDef struct {
	ID       string `json:"id" yaml:"id"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

type ConditionKeyDef struct {
	ID          string   `json:"id" yaml:"id"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"` // engagement, mode, requirement, timing, runtime
	Params      []string `json:"params,omitempty" yaml:"params,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

type IssueTypeDef struct {
	ID             string `json:"id" yaml:"id"`
	Severity       string `json:"severity" yaml:"severity"`
	DefaultMessage string `json:"defaultMessage" yaml:"defaultMessage"`
}

// Intent is a named combat or activity objective with its effect weights.
type Intent struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Description    string         `json:"description" yaml:"description"`
	DefaultContext *IntentContext `json:"defaultContext,omitempty" yaml:"defaultContext,omitempty"`
	EffectWeights  []EffectWeight `json:"effectWeights" yaml:"effectWeights"`
}

// IntentContext is the default target scenario of an intent.
type IntentContext struct {
	TargetKind string     `json:"targetKind" yaml:"targetKind"`
	Engagement Engagement `json:"engagement,omitempty" yaml:"engagement,omitempty"`
	TargetTags []string   `json:"targetTags,omitempty" yaml:"targetTags,omitempty"`
	ShipClass  string     `json:"shipClass,omitempty" yaml:"shipClass,omitempty"`
}

type EffectWeight struct {
	EffectKey string  `json:"effectKey" yaml:"effectKey"`
	Weight    float64 `json:"weight" yaml:"weight"`
}

// Weights returns the intent's weight table keyed by effect key.
// A key listed twice keeps its last weight.
func (i Intent) Weights() map[string]float64 {
	out := make(map[string]float64, len(i.EffectWeights))
	for _, w := range i.EffectWeights {
		out[w.EffectKey] = w.Weight
	}
	return out
}

// Scenario returns the intent's default scenario, or an unrestricted
// scenario when the intent declares none.
func (i Intent) Scenario() Scenario {
	if i.DefaultContext == nil {
		return Scenario{Engagement: EngagementAny}
	}
	c := i.DefaultContext
	engagement := c.Engagement
	if engagement == "" {
		engagement = EngagementAny
	}
	return Scenario{
		TargetKind:      c.TargetKind,
		Engagement:      engagement,
		TargetTags:      append([]string(nil), c.TargetTags...),
		TargetShipClass: c.ShipClass,
	}
}

// SeedAbility is one ability of one officer as it arrives from ingestion.
type SeedAbility struct {
	ID          string       `json:"id" yaml:"id"`
	OfficerID   string       `json:"officerId" yaml:"officerId"`
	OfficerName string       `json:"officerName,omitempty" yaml:"officerName,omitempty"`
	Slot        string       `json:"slot" yaml:"slot"`
	Name        *string      `json:"name" yaml:"name"`
	RawText     string       `json:"rawText" yaml:"rawText"`
	IsInert     bool         `json:"isInert" yaml:"isInert"`
	Effects     []SeedEffect `json:"effects" yaml:"effects"`
}

// SeedEffect is one effect mapping with whatever provenance ingestion captured.
type SeedEffect struct {
	ID          string      `json:"id" yaml:"id"`
	EffectKey   string      `json:"effectKey" yaml:"effectKey"`
	Magnitude   *float64    `json:"magnitude,omitempty" yaml:"magnitude,omitempty"`
	Unit        string      `json:"unit,omitempty" yaml:"unit,omitempty"`
	Stacking    string      `json:"stacking,omitempty" yaml:"stacking,omitempty"`
	TargetKinds []string    `json:"targetKinds,omitempty" yaml:"targetKinds,omitempty"`
	TargetTags  []string    `json:"targetTags,omitempty" yaml:"targetTags,omitempty"`
	ShipClass   string      `json:"shipClass,omitempty" yaml:"shipClass,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	SourceRef     string `json:"sourceRef,omitempty" yaml:"sourceRef,omitempty"`
	SourceSpan    *Span  `json:"sourceSpan,omitempty" yaml:"sourceSpan,omitempty"`
	SourceSegment string `json:"sourceSegment,omitempty" yaml:"sourceSegment,omitempty"`
	Snippet       string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	SourceLocale  string `json:"sourceLocale,omitempty" yaml:"sourceLocale,omitempty"`

	Extraction         *SeedExtraction `json:"extraction,omitempty" yaml:"extraction,omitempty"`
	Confidence         *SeedConfidence `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Inferred           bool            `json:"inferred,omitempty" yaml:"inferred,omitempty"`
	PromotionReceiptID *string         `json:"promotionReceiptId,omitempty" yaml:"promotionReceiptId,omitempty"`
}

// Condition is a typed gate on an effect.
type Condition struct {
	ConditionKey string            `json:"conditionKey" yaml:"conditionKey"`
	Params       map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Span is a [Start, End) byte range into an ability's raw text.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

type SeedExtraction struct {
	Method        string `json:"method,omitempty" yaml:"method,omitempty"` // deterministic, llm, manual
	RuleID        string `json:"ruleId,omitempty" yaml:"ruleId,omitempty"`
	Model         string `json:"model,omitempty" yaml:"model,omitempty"`
	PromptVersion string `json:"promptVersion,omitempty" yaml:"promptVersion,omitempty"`
}

type SeedConfidence struct {
	Score float64 `json:"score" yaml:"score"`
	Tier  string  `json:"tier,omitempty" yaml:"tier,omitempty"`
}
