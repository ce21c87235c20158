// Package catalog indexes a contract artifact into flat officer, ability and
// effect tables.
//
// A Catalog is built once per artifact and is read-only afterwards, so it is
// safe to share between goroutines.
package catalog

import (
	"errors"

	"github.com/Guffawaffle/majel/pkg/contracts"
)

var ErrNilArtifact = errors.New("catalog: artifact is nil")

// Officer is one officer row with its abilities in artifact order.
type Officer struct {
	ID         string   `json:"officerId"`
	Name       string   `json:"officerName"`
	AbilityIDs []string `json:"abilityIds"`
}

// EffectRow is one effect with the keys of its owning ability and officer.
type EffectRow struct {
	OfficerID string
	AbilityID string
	Slot      string
	Effect    *contracts.Effect
}

// Catalog is the indexed form of one artifact.
type Catalog struct {
	version   string
	order     []string
	officers  map[string]*Officer
	abilities map[string]*contracts.Ability
	owners    map[string]string // abilityId → officerId
	effects   map[string]EffectRow
	effectIDs []string
}

// New indexes a. The catalog aliases a's abilities and effects; callers must
// treat a as immutable afterwards, which every producer of artifacts
// guarantees.
func New(a *contracts.Artifact) (*Catalog, error) {
	if a == nil {
		return nil, ErrNilArtifact
	}
	c := &Catalog{
		version:   a.ArtifactVersion,
		order:     make([]string, 0, len(a.Officers)),
		officers:  make(map[string]*Officer, len(a.Officers)),
		abilities: make(map[string]*contracts.Ability),
		owners:    make(map[string]string),
		effects:   make(map[string]EffectRow, a.EffectCount()),
	}
	for i := range a.Officers {
		o := &a.Officers[i]
		row := &Officer{ID: o.OfficerID, Name: o.OfficerName, AbilityIDs: make([]string, 0, len(o.Abilities))}
		for j := range o.Abilities {
			ab := &o.Abilities[j]
			row.AbilityIDs = append(row.AbilityIDs, ab.AbilityID)
			c.abilities[ab.AbilityID] = ab
			c.owners[ab.AbilityID] = o.OfficerID
			for k := range ab.Effects {
				e := &ab.Effects[k]
				c.effects[e.EffectID] = EffectRow{OfficerID: o.OfficerID, AbilityID: ab.AbilityID, Slot: ab.Slot, Effect: e}
				c.effectIDs = append(c.effectIDs, e.EffectID)
			}
		}
		c.officers[o.OfficerID] = row
		c.order = append(c.order, o.OfficerID)
	}
	return c, nil
}

// Version returns the artifactVersion the catalog was built from.
func (c *Catalog) Version() string { return c.version }

// Officer looks up an officer row.
func (c *Catalog) Officer(id string) (Officer, bool) {
	o, ok := c.officers[id]
	if !ok {
		return Officer{}, false
	}
	return *o, true
}

// Officers returns every officer in artifact order.
func (c *Catalog) Officers() []Officer {
	out := make([]Officer, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.officers[id])
	}
	return out
}

// Abilities returns an officer's abilities in artifact order. An unknown
// officer has none.
func (c *Catalog) Abilities(officerID string) []contracts.Ability {
	o, ok := c.officers[officerID]
	if !ok {
		return nil
	}
	out := make([]contracts.Ability, 0, len(o.AbilityIDs))
	for _, id := range o.AbilityIDs {
		out = append(out, *c.abilities[id])
	}
	return out
}

// Ability looks up an ability and the officer that owns it.
func (c *Catalog) Ability(id string) (*contracts.Ability, string, bool) {
	ab, ok := c.abilities[id]
	if !ok {
		return nil, "", false
	}
	return ab, c.owners[id], true
}

// Effect looks up an effect by id.
func (c *Catalog) Effect(id string) (EffectRow, bool) {
	r, ok := c.effects[id]
	return r, ok
}

// Effects returns every effect row in artifact order.
func (c *Catalog) Effects() []EffectRow {
	out := make([]EffectRow, 0, len(c.effectIDs))
	for _, id := range c.effectIDs {
		out = append(out, c.effects[id])
	}
	return out
}

// Len returns the number of officers.
func (c *Catalog) Len() int { return len(c.order) }
