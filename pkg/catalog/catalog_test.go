package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/fixtures"
)

func sampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	seed := fixtures.SampleSeed()
	a, err := builder.Build(&seed, builder.Options{SnapshotVersion: "test"})
	require.NoError(t, err)
	c, err := New(a)
	require.NoError(t, err)
	return c
}

func TestNew_Tables(t *testing.T) {
	c := sampleCatalog(t)

	assert.Equal(t, 4, c.Len())
	ids := make([]string, 0, c.Len())
	for _, o := range c.Officers() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"kirk", "mccoy", "scotty", "spock"}, ids)

	kirk, ok := c.Officer("kirk")
	require.True(t, ok)
	assert.Equal(t, "James T. Kirk", kirk.Name)
	assert.Equal(t, []string{"kirk-cm", "kirk-oa"}, kirk.AbilityIDs)

	assert.Len(t, c.Effects(), 7)
	assert.NotEmpty(t, c.Version())
}

func TestCatalog_Lookups(t *testing.T) {
	c := sampleCatalog(t)

	ab, owner, ok := c.Ability("spock-cm")
	require.True(t, ok)
	assert.Equal(t, "spock", owner)
	assert.Len(t, ab.Effects, 2)

	row, ok := c.Effect("spock-cm:ef:src-0")
	require.True(t, ok)
	assert.Equal(t, "spock", row.OfficerID)
	assert.Equal(t, "cm", row.Slot)
	assert.Equal(t, "dodge", row.Effect.EffectKey)

	abilities := c.Abilities("mccoy")
	require.Len(t, abilities, 2)
	assert.Equal(t, "mccoy-oa", abilities[0].AbilityID)
	assert.True(t, abilities[1].IsInert)

	_, ok = c.Officer("q")
	assert.False(t, ok)
	assert.Empty(t, c.Abilities("q"))
	_, _, ok = c.Ability("q-cm")
	assert.False(t, ok)
}

func TestNew_NilArtifact(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilArtifact)
}
