package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/fixtures"
)

func sample(t *testing.T) *contracts.Artifact {
	t.Helper()
	seed := fixtures.SampleSeed()
	a, err := builder.Build(&seed, builder.Options{})
	require.NoError(t, err)
	return a
}

func TestAttestAndVerify(t *testing.T) {
	a := sample(t)
	s, err := NewSigner("ci")
	require.NoError(t, err)

	att, err := s.Attest(a)
	require.NoError(t, err)
	assert.Equal(t, a.ArtifactVersion, att.ArtifactVersion)
	assert.Equal(t, "ci", att.KeyID)
	assert.Equal(t, Algorithm, att.Algorithm)

	require.NoError(t, Verify(a, att, ""))
	require.NoError(t, Verify(a, att, s.PublicKey()))
}

func TestVerify_Rejects(t *testing.T) {
	a := sample(t)
	s, err := NewSigner("ci")
	require.NoError(t, err)
	other, err := NewSigner("other")
	require.NoError(t, err)
	att, err := s.Attest(a)
	require.NoError(t, err)

	t.Run("untrusted key", func(t *testing.T) {
		assert.ErrorIs(t, Verify(a, att, other.PublicKey()), ErrBadSignature)
	})

	t.Run("different artifact", func(t *testing.T) {
		b := sample(t)
		*b.Officers[0].Abilities[0].Effects[0].Magnitude = 0.5
		_, err := builder.Seal(b)
		require.NoError(t, err)
		assert.ErrorIs(t, Verify(b, att, ""), ErrDigestMismatch)
	})

	t.Run("forged signature", func(t *testing.T) {
		forged := *att
		forged.PublicKey = other.PublicKey()
		assert.ErrorIs(t, Verify(a, &forged, ""), ErrBadSignature)
	})

	t.Run("garbage", func(t *testing.T) {
		bad := *att
		bad.Signature = "zz"
		assert.ErrorIs(t, Verify(a, &bad, ""), ErrBadAttestation)

		bad = *att
		bad.Algorithm = "rsa"
		assert.ErrorIs(t, Verify(a, &bad, ""), ErrUnsupportedAlgo)

		assert.ErrorIs(t, Verify(a, nil, ""), ErrBadAttestation)
	})
}

func TestNewSignerFromSeed_Deterministic(t *testing.T) {
	master := []byte("correct horse battery staple")

	a, err := NewSignerFromSeed(master, "prod")
	require.NoError(t, err)
	b, err := NewSignerFromSeed(master, "prod")
	require.NoError(t, err)
	c, err := NewSignerFromSeed(master, "staging")
	require.NoError(t, err)

	assert.Equal(t, a.PublicKey(), b.PublicKey())
	assert.NotEqual(t, a.PublicKey(), c.PublicKey())

	_, err = NewSignerFromSeed(nil, "prod")
	assert.ErrorIs(t, err, ErrEmptySeed)
}

func TestAttest_UnsealedArtifact(t *testing.T) {
	a := sample(t)
	a.ArtifactVersion = "1.0.0+sha256:0000000000000000"
	s, err := NewSigner("ci")
	require.NoError(t, err)

	_, err = s.Attest(a)
	assert.ErrorIs(t, err, builder.ErrVersionMismatch)
}
