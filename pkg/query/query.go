// Package query selects officers and effects from a catalog with CEL
// expressions.
//
// Effect queries see three variables, `officer`, `ability` and `effect`,
// each the JSON form of the corresponding artifact object:
//
//	effect.effectKey == "dodge" && ability.slot == "cm"
//	effect.magnitude > 0.15 && "hostile" in effect.targets.targetKinds
//
// Officer queries see `officer` with its abilities and their effects
// nested under it:
//
//	officer.abilities.exists(a, a.effects.exists(e, e.effectKey == "armor"))
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/Guffawaffle/majel/pkg/catalog"
	"github.com/Guffawaffle/majel/pkg/contracts"
)

const costLimit = 100000

var (
	ErrCompile   = errors.New("query: compile")
	ErrNotBool   = errors.New("query: expression does not evaluate to bool")
	ErrEvaluate  = errors.New("query: evaluate")
	ErrNilTarget = errors.New("query: catalog is nil")
)

// Engine compiles and caches query programs. It is safe for concurrent use.
type Engine struct {
	env *cel.Env

	mu       sync.RWMutex
	prgCache map[string]cel.Program
}

// NewEngine creates an engine with the officer/ability/effect environment.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("officer", cel.DynType),
		cel.Variable("ability", cel.DynType),
		cel.Variable("effect", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("query: create CEL environment: %w", err)
	}
	return &Engine{env: env, prgCache: make(map[string]cel.Program)}, nil
}

// Compile checks expr and caches its program.
func (e *Engine) Compile(expr string) error {
	_, err := e.program(expr)
	return err
}

func (e *Engine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.prgCache[expr]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.prgCache[expr]; hit {
		return prg, nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, issues.Err())
	}
	if t := ast.OutputType(); !t.IsAssignableType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %s", ErrNotBool, t)
	}
	prg, err := e.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	e.prgCache[expr] = prg
	return prg, nil
}

func (e *Engine) match(prg cel.Program, vars map[string]any) (bool, error) {
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrEvaluate, err)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, ErrNotBool
	}
	return v, nil
}

// Effects returns the catalog's effect rows, in artifact order, for which
// expr holds.
func (e *Engine) Effects(cat *catalog.Catalog, expr string) ([]catalog.EffectRow, error) {
	if cat == nil {
		return nil, ErrNilTarget
	}
	prg, err := e.program(expr)
	if err != nil {
		return nil, err
	}

	officers := make(map[string]map[string]any)
	out := []catalog.EffectRow{}
	for _, row := range cat.Effects() {
		off, ok := officers[row.OfficerID]
		if !ok {
			o, _ := cat.Officer(row.OfficerID)
			off = map[string]any{"officerId": o.ID, "officerName": o.Name}
			officers[row.OfficerID] = off
		}
		ab, _, _ := cat.Ability(row.AbilityID)
		abVal, err := abilityValue(ab, false)
		if err != nil {
			return nil, err
		}
		efVal, err := toValue(row.Effect)
		if err != nil {
			return nil, err
		}

		ok, err = e.match(prg, map[string]any{
			"officer": off,
			"ability": abVal,
			"effect":  efVal,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (effect %s)", err, row.Effect.EffectID)
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Officers returns the catalog's officers, in artifact order, for which
// expr holds. `ability` and `effect` are empty maps in officer queries.
func (e *Engine) Officers(cat *catalog.Catalog, expr string) ([]catalog.Officer, error) {
	if cat == nil {
		return nil, ErrNilTarget
	}
	prg, err := e.program(expr)
	if err != nil {
		return nil, err
	}

	out := []catalog.Officer{}
	for _, o := range cat.Officers() {
		abilities := cat.Abilities(o.ID)
		list := make([]any, 0, len(abilities))
		for i := range abilities {
			v, err := abilityValue(&abilities[i], true)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		ok, err := e.match(prg, map[string]any{
			"officer": map[string]any{
				"officerId":   o.ID,
				"officerName": o.Name,
				"abilities":   list,
			},
			"ability": map[string]any{},
			"effect":  map[string]any{},
		})
		if err != nil {
			return nil, fmt.Errorf("%w (officer %s)", err, o.ID)
		}
		if ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// abilityValue is the JSON form of ab, without its effects unless
// withEffects is set.
func abilityValue(ab *contracts.Ability, withEffects bool) (map[string]any, error) {
	if ab == nil {
		return map[string]any{}, nil
	}
	cp := *ab
	if !withEffects {
		cp.Effects = nil
	}
	cp.Unmapped = nil
	v, err := toValue(&cp)
	if err != nil {
		return nil, err
	}
	if !withEffects {
		delete(v, "effects")
	}
	delete(v, "unmapped")
	return v, nil
}

func toValue(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("query: encode: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("query: decode: %w", err)
	}
	return out, nil
}
