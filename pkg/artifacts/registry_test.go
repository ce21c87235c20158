package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/fixtures"
)

func TestRegistry_RoundTrip(t *testing.T) {
	seed := fixtures.SampleSeed()
	a, err := builder.Build(&seed, builder.Options{SnapshotVersion: "2026.10.1"})
	require.NoError(t, err)

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	reg := NewRegistry(store)
	ctx := context.Background()

	hash, err := reg.PutArtifact(ctx, a)
	require.NoError(t, err)

	again, err := reg.PutArtifact(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	got, err := reg.GetArtifact(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, a.ArtifactVersion, got.ArtifactVersion)
	assert.Equal(t, a.EffectCount(), got.EffectCount())
}

func TestRegistry_RejectsUnsealed(t *testing.T) {
	seed := fixtures.SampleSeed()
	a, err := builder.Build(&seed, builder.Options{})
	require.NoError(t, err)
	*a.Officers[0].Abilities[0].Effects[0].Magnitude = 0.99

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = NewRegistry(store).PutArtifact(context.Background(), a)
	assert.ErrorIs(t, err, builder.ErrVersionMismatch)
}

func TestRegistry_DetectsTampering(t *testing.T) {
	seed := fixtures.SampleSeed()
	a, err := builder.Build(&seed, builder.Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	reg := NewRegistry(store)
	ctx := context.Background()

	hash, err := reg.PutArtifact(ctx, a)
	require.NoError(t, err)

	path := filepath.Join(dir, strings.TrimPrefix(hash, "sha256:")+".blob")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), "0.2", "0.3", 1)), 0o644))

	_, err = reg.GetArtifact(ctx, hash)
	assert.ErrorIs(t, err, ErrCorrupt)
}
