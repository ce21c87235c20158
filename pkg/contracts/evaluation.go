package contracts

// Engagement is which side of combat the scenario puts the crew on.
type Engagement string

const (
	EngagementAttacking Engagement = "attacking"
	EngagementDefending Engagement = "defending"
	EngagementAny       Engagement = "any"
)

// Role is the seat an officer occupies when scored.
type Role string

const (
	RoleCaptain   Role = "captain"
	RoleBridge    Role = "bridge"
	RoleBelowDeck Role = "below_deck"
)

// ShipContext describes the crew's own ship.
type ShipContext struct {
	Class string   `json:"class,omitempty"`
	ID    string   `json:"id,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// Scenario is the target context an effect or crew is evaluated against.
// It is supplied per call and never persisted.
type Scenario struct {
	TargetKind      string       `json:"targetKind"`
	Engagement      Engagement   `json:"engagement"`
	TargetTags      []string     `json:"targetTags,omitempty"`
	TargetShipClass string       `json:"targetShipClass,omitempty"`
	Ship            *ShipContext `json:"ship,omitempty"`
	Slot            Role         `json:"slot,omitempty"`
}

// HasTargetTag reports whether tag is present in the scenario's target tags.
func (s Scenario) HasTargetTag(tag string) bool {
	for _, t := range s.TargetTags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasShipTag reports whether the scenario's own ship carries tag.
func (s Scenario) HasShipTag(tag string) bool {
	if s.Ship == nil {
		return false
	}
	for _, t := range s.Ship.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ShipClass returns the own-ship class, or "" when unknown.
func (s Scenario) ShipClass() string {
	if s.Ship == nil {
		return ""
	}
	return s.Ship.Class
}

// Status is the applicability of one effect in one scenario.
type Status string

const (
	StatusWorks       Status = "works"
	StatusConditional Status = "conditional"
	StatusBlocked     Status = "blocked"
)

// Multiplier is the applicability weight of a status: 1.0, 0.5, 0.0.
func (s Status) Multiplier() float64 {
	switch s {
	case StatusWorks:
		return 1.0
	case StatusConditional:
		return 0.5
	default:
		return 0.0
	}
}

// Severity ranks statuses: blocked > conditional > works.
func (s Status) Severity() int {
	switch s {
	case StatusBlocked:
		return 2
	case StatusConditional:
		return 1
	default:
		return 0
	}
}

// Worst returns the more severe of s and other.
func (s Status) Worst(other Status) Status {
	if other.Severity() > s.Severity() {
		return other
	}
	return s
}

// Severity levels shared by validation issues, unmapped entries and
// evaluation issues.
const (
	SeverityError = "error"
	SeverityWarn  = "warn"
	SeverityInfo  = "info"
)

// Issue explains why an effect did not fully apply.
type Issue struct {
	Type         string `json:"type"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
	EffectID     string `json:"effectId,omitempty"`
	EffectKey    string `json:"effectKey,omitempty"`
	ConditionKey string `json:"conditionKey,omitempty"`
}

// Verdict is the aggregate classification of an officer or crew.
type Verdict string

const (
	VerdictWorks   Verdict = "works"
	VerdictPartial Verdict = "partial"
	VerdictBlocked Verdict = "blocked"
	VerdictUnknown Verdict = "unknown"
)

// ValidationIssue is one finding of seed or document validation.
type ValidationIssue struct {
	Severity string `json:"severity"` // error, warn
	Code     string `json:"code"`
	Path     string `json:"path"`
	Message  string `json:"message"`
}
