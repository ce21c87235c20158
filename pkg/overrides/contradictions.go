package overrides

import (
	"fmt"
	"strconv"

	"github.com/Guffawaffle/majel/pkg/canonicalize"
	"github.com/Guffawaffle/majel/pkg/contracts"
)

// signature is the part of an effect that defines what it does, as opposed
// to where it came from.
type signature struct {
	EffectKey  string                `json:"effectKey"`
	Magnitude  *float64              `json:"magnitude"`
	Unit       *string               `json:"unit"`
	Stacking   *string               `json:"stacking"`
	Targets    contracts.Targets     `json:"targets"`
	Conditions []contracts.Condition `json:"conditions"`
}

// Signature returns the canonical digest of an effect's behavior. Two
// effects with equal signatures are duplicates regardless of provenance.
func Signature(e *contracts.Effect) (string, error) {
	cp := *e
	cp.Normalize()
	return canonicalize.Digest(signature{
		EffectKey:  cp.EffectKey,
		Magnitude:  cp.Magnitude,
		Unit:       cp.Unit,
		Stacking:   cp.Stacking,
		Targets:    cp.Targets,
		Conditions: cp.Conditions,
	})
}

type claim struct {
	effectID  string
	effectKey string
	magnitude *float64
}

// checkContradictions enforces, over the whole artifact: unique effect ids;
// no two effects of one ability with the same signature; no two effects of
// one ability claiming the same (sourceRef, sourceOffset) evidence while
// disagreeing on effect key or magnitude.
func checkContradictions(a *contracts.Artifact) error {
	ids := make(map[string]string)
	for _, o := range a.Officers {
		for _, ab := range o.Abilities {
			sigs := make(map[string]string, len(ab.Effects))
			claims := make(map[string]claim)
			for i := range ab.Effects {
				ef := &ab.Effects[i]

				if prev, dup := ids[ef.EffectID]; dup {
					return batchErr(ErrContradiction,
						fmt.Sprintf("effect id %s appears in both %s and %s", ef.EffectID, prev, ab.AbilityID))
				}
				ids[ef.EffectID] = ab.AbilityID

				sig, err := Signature(ef)
				if err != nil {
					return batchErr(ErrContradiction, err.Error())
				}
				if other, dup := sigs[sig]; dup {
					return batchErr(ErrContradiction,
						fmt.Sprintf("effects %s and %s in %s are identical", other, ef.EffectID, ab.AbilityID))
				}
				sigs[sig] = ef.EffectID

				for _, ev := range ef.Evidence {
					if ev.SourceOffset == nil {
						continue
					}
					key := ev.SourceRef + "#" + strconv.Itoa(*ev.SourceOffset)
					prev, seen := claims[key]
					if !seen {
						claims[key] = claim{ef.EffectID, ef.EffectKey, ef.Magnitude}
						continue
					}
					if prev.effectID == ef.EffectID {
						continue
					}
					if prev.effectKey != ef.EffectKey || !sameMagnitude(prev.magnitude, ef.Magnitude) {
						return batchErr(ErrContradiction,
							fmt.Sprintf("effects %s and %s in %s disagree on evidence %s", prev.effectID, ef.EffectID, ab.AbilityID, key))
					}
				}
			}
		}
	}
	return nil
}

func sameMagnitude(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
