//go:build property
// +build property

package builder_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/fixtures"
)

var propOpts = builder.Options{
	GeneratedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	Locale:      "en",
}

// shuffled returns the sample seed with every order-insensitive list
// permuted by r.
func shuffled(r *rand.Rand) contracts.Seed {
	s := fixtures.SampleSeed()
	r.Shuffle(len(s.Officers), func(i, j int) { s.Officers[i], s.Officers[j] = s.Officers[j], s.Officers[i] })
	for i := range s.Officers {
		e := s.Officers[i].Effects
		r.Shuffle(len(e), func(a, b int) { e[a], e[b] = e[b], e[a] })
		for k := range e {
			kinds := e[k].TargetKinds
			r.Shuffle(len(kinds), func(a, b int) { kinds[a], kinds[b] = kinds[b], kinds[a] })
		}
	}
	t := &s.Taxonomy
	r.Shuffle(len(t.TargetKinds), func(i, j int) { t.TargetKinds[i], t.TargetKinds[j] = t.TargetKinds[j], t.TargetKinds[i] })
	r.Shuffle(len(t.TargetTags), func(i, j int) { t.TargetTags[i], t.TargetTags[j] = t.TargetTags[j], t.TargetTags[i] })
	r.Shuffle(len(t.EffectKeys), func(i, j int) { t.EffectKeys[i], t.EffectKeys[j] = t.EffectKeys[j], t.EffectKeys[i] })
	r.Shuffle(len(t.ConditionKeys), func(i, j int) { t.ConditionKeys[i], t.ConditionKeys[j] = t.ConditionKeys[j], t.ConditionKeys[i] })
	return s
}

// TestBuildDeterminism checks that input order never reaches the artifact.
// Property: Build(permute(seed)) == Build(seed)
func TestBuildDeterminism(t *testing.T) {
	base := fixtures.SampleSeed()
	want, err := builder.Build(&base, propOpts)
	if err != nil {
		t.Fatal(err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("permuted seeds build identical artifacts", prop.ForAll(
		func(n int64) bool {
			seed := shuffled(rand.New(rand.NewSource(n)))
			got, err := builder.Build(&seed, propOpts)
			if err != nil {
				return false
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Logf("seed %d (-want +got):\n%s", n, diff)
				return false
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// TestVersionTracksMagnitude checks that every magnitude change is visible
// in the version.
// Property: m1 != m2 => version(m1) != version(m2)
func TestVersionTracksMagnitude(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("distinct magnitudes give distinct versions", prop.ForAll(
		func(m1, m2 float64) bool {
			if m1 == m2 {
				return true
			}
			s1, s2 := fixtures.SampleSeed(), fixtures.SampleSeed()
			s1.Officers[0].Effects[0].Magnitude = fixtures.Float(m1)
			s2.Officers[0].Effects[0].Magnitude = fixtures.Float(m2)
			a1, err1 := builder.Build(&s1, propOpts)
			a2, err2 := builder.Build(&s2, propOpts)
			if err1 != nil || err2 != nil {
				return false
			}
			return a1.ArtifactVersion != a2.ArtifactVersion
		},
		gen.Float64Range(0, 10),
		gen.Float64Range(0, 10),
	))

	properties.TestingRun(t)
}
