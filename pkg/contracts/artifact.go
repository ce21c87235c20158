package contracts

const (
	// ArtifactSchemaVersion is the schema version stamped on built contracts.
	ArtifactSchemaVersion = "1.0.0"

	// CanonicalizationScheme names the canonical form digests are taken over.
	CanonicalizationScheme = "rfc8785+nfc+sorted-sets"
)

// Extraction methods recorded on artifact effects.
const (
	ExtractionSeed       = "seed"
	ExtractionOverridden = "overridden"
)

// Unmapped entry types.
const (
	UnmappedUnknownEffectKey = "unknown_effect_key"
	UnmappedAbilityText      = "unmapped_ability_text"
)

// Artifact is the versioned effects contract: officers → abilities → effects.
type Artifact struct {
	SchemaVersion   string      `json:"schemaVersion"`
	ArtifactVersion string      `json:"artifactVersion"` // {schemaVersion}+sha256:{16 hex}
	GeneratedAt     string      `json:"generatedAt"`
	Source          SourceInfo  `json:"source"`
	TaxonomyRef     TaxonomyRef `json:"taxonomyRef"`
	Officers        []Officer   `json:"officers"`
}

type SourceInfo struct {
	SnapshotVersion  string `json:"snapshotVersion"`
	Locale           string `json:"locale"`
	GeneratorVersion string `json:"generatorVersion"`
}

// TaxonomyRef pins the taxonomy an artifact was built against, one digest per facet.
type TaxonomyRef struct {
	Version             string `json:"version"`
	Canonicalization    string `json:"canonicalization"`
	TargetKindsDigest   string `json:"targetKindsDigest"`
	TargetTagsDigest    string `json:"targetTagsDigest"`
	ShipClassesDigest   string `json:"shipClassesDigest"`
	SlotsDigest         string `json:"slotsDigest"`
	EffectKeysDigest    string `json:"effectKeysDigest"`
	ConditionKeysDigest string `json:"conditionKeysDigest"`
	IssueTypesDigest    string `json:"issueTypesDigest"`
}

type Officer struct {
	OfficerID   string    `json:"officerId"`
	OfficerName string    `json:"officerName"`
	Abilities   []Ability `json:"abilities"`
}

type Ability struct {
	AbilityID   string     `json:"abilityId"`
	Slot        string     `json:"slot"`
	IsInert     bool       `json:"isInert"`
	InertReason *string    `json:"inertReason"`
	Name        *string    `json:"name"`
	RawText     string     `json:"rawText"`
	Effects     []Effect   `json:"effects"`
	Unmapped    []Unmapped `json:"unmapped"`
}

// Effect is one resolved, normalized effect inside an ability.
type Effect struct {
	EffectID           string      `json:"effectId"`
	EffectKey          string      `json:"effectKey"`
	Magnitude          *float64    `json:"magnitude"`
	Unit               *string     `json:"unit"`
	Stacking           *string     `json:"stacking"`
	Targets            Targets     `json:"targets"`
	Conditions         []Condition `json:"conditions"`
	Extraction         Extraction  `json:"extraction"`
	Inferred           bool        `json:"inferred"`
	PromotionReceiptID *string     `json:"promotionReceiptId"`
	Confidence         Confidence  `json:"confidence"`
	Evidence           []Evidence  `json:"evidence"`
}

type Targets struct {
	TargetKinds []string `json:"targetKinds"`
	TargetTags  []string `json:"targetTags"`
	ShipClass   *string  `json:"shipClass"`
}

type Extraction struct {
	Method        string  `json:"method"`
	RuleID        *string `json:"ruleId"`
	Model         *string `json:"model"`
	PromptVersion *string `json:"promptVersion"`
	InputDigest   string  `json:"inputDigest"`
}

type Confidence struct {
	Score            float64 `json:"score"`
	Tier             string  `json:"tier"` // high, medium, low
	ForcedByOverride bool    `json:"forcedByOverride"`
}

// Evidence ties an effect to the text it was derived from.
type Evidence struct {
	SourceRef    string  `json:"sourceRef"`
	Snippet      string  `json:"snippet"`
	RuleID       *string `json:"ruleId"`
	SourceLocale string  `json:"sourceLocale"`
	SourcePath   string  `json:"sourcePath"`
	SourceOffset *int    `json:"sourceOffset"`
}

// Unmapped records something in the source that could not be resolved.
type Unmapped struct {
	Type       string     `json:"type"`
	Severity   string     `json:"severity"`
	Reason     string     `json:"reason"`
	Confidence float64    `json:"confidence"`
	Evidence   []Evidence `json:"evidence"`
}

// Normalize replaces nil slices with empty ones so that an effect serializes
// the same way whether it came from the builder, an override, or a decode.
func (e *Effect) Normalize() {
	if e.Targets.TargetKinds == nil {
		e.Targets.TargetKinds = []string{}
	}
	if e.Targets.TargetTags == nil {
		e.Targets.TargetTags = []string{}
	}
	if e.Conditions == nil {
		e.Conditions = []Condition{}
	}
	if e.Evidence == nil {
		e.Evidence = []Evidence{}
	}
}

// FindAbility returns the officer and ability indexes of abilityID, or -1s.
func (a *Artifact) FindAbility(abilityID string) (int, int) {
	for i := range a.Officers {
		for j := range a.Officers[i].Abilities {
			if a.Officers[i].Abilities[j].AbilityID == abilityID {
				return i, j
			}
		}
	}
	return -1, -1
}

// EffectCount returns the number of resolved effects in the artifact.
func (a *Artifact) EffectCount() int {
	n := 0
	for _, o := range a.Officers {
		for _, ab := range o.Abilities {
			n += len(ab.Effects)
		}
	}
	return n
}

// UnmappedCount returns the number of unmapped entries in the artifact.
func (a *Artifact) UnmappedCount() int {
	n := 0
	for _, o := range a.Officers {
		for _, ab := range o.Abilities {
			n += len(ab.Unmapped)
		}
	}
	return n
}
