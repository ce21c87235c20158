// Package fixtures ships a small, valid example seed. `majel init` writes it
// out as a starting point and package tests build on it.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/Guffawaffle/majel/pkg/contracts"
)

//go:embed sample_seed.json
var sampleSeed []byte

// SampleSeedJSON returns a copy of the example seed document.
func SampleSeedJSON() []byte {
	return append([]byte(nil), sampleSeed...)
}

// SampleSeed returns a freshly decoded example seed. Callers may mutate it.
func SampleSeed() contracts.Seed {
	var s contracts.Seed
	if err := json.Unmarshal(sampleSeed, &s); err != nil {
		panic(fmt.Sprintf("fixtures: embedded seed is invalid: %v", err))
	}
	return s
}

// SampleIntent returns the named intent from the example seed.
func SampleIntent(id string) (contracts.Intent, bool) {
	for _, in := range SampleSeed().Intents {
		if in.ID == id {
			return in, true
		}
	}
	return contracts.Intent{}, false
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
