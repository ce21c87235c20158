package contracts

const (
	// OverrideSchemaVersion is the only override file schema version accepted.
	OverrideSchemaVersion = "1.0.0"

	// ArtifactBaseAny matches whatever artifact an override batch is applied to.
	ArtifactBaseAny = "*"

	OpReplaceEffect = "replace_effect"
)

// OverrideFile is a batch of point patches against one base artifact.
type OverrideFile struct {
	SchemaVersion string              `json:"schemaVersion" yaml:"schemaVersion"`
	ArtifactBase  string              `json:"artifactBase" yaml:"artifactBase"`
	Operations    []OverrideOperation `json:"operations" yaml:"operations"`
}

type OverrideOperation struct {
	Op     string         `json:"op" yaml:"op"`
	Target OverrideTarget `json:"target" yaml:"target"`
	Value  EffectValue    `json:"value" yaml:"value"`
	Reason string         `json:"reason" yaml:"reason"`
	Author string         `json:"author" yaml:"author"`
	Ticket *string        `json:"ticket,omitempty" yaml:"ticket,omitempty"`
}

type OverrideTarget struct {
	AbilityID string `json:"abilityId" yaml:"abilityId"`
	EffectID  string `json:"effectId" yaml:"effectId"`
}

// EffectValue is an artifact effect without its id: the replacement body of
// a replace_effect operation.
type EffectValue struct {
	EffectKey  string      `json:"effectKey" yaml:"effectKey"`
	Magnitude  *float64    `json:"magnitude" yaml:"magnitude"`
	Unit       *string     `json:"unit" yaml:"unit"`
	Stacking   *string     `json:"stacking" yaml:"stacking"`
	Targets    Targets     `json:"targets" yaml:"targets"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Extraction *Extraction `json:"extraction,omitempty" yaml:"extraction,omitempty"`
	Confidence *Confidence `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Evidence   []Evidence  `json:"evidence" yaml:"evidence"`
}
