// Package signing attests contract artifacts with ed25519.
//
// An attestation signs the canonical form of {artifactVersion,
// contentDigest}. Keys are either random or derived from a configured master
// seed with HKDF-SHA256, so a deployment can re-create its signing key from
// configuration alone.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/canonicalize"
	"github.com/Guffawaffle/majel/pkg/contracts"
)

// Algorithm is recorded on every attestation.
const Algorithm = "ed25519"

const kdfSalt = "majel-artifact-kdf"

var (
	ErrEmptySeed       = errors.New("signing: master seed is empty")
	ErrBadSignature    = errors.New("signing: signature does not verify")
	ErrDigestMismatch  = errors.New("signing: attestation does not match artifact")
	ErrBadAttestation  = errors.New("signing: malformed attestation")
	ErrUnsupportedAlgo = errors.New("signing: unsupported algorithm")
)

// Attestation is a detached signature over an artifact.
type Attestation struct {
	ArtifactVersion string `json:"artifactVersion"`
	ContentDigest   string `json:"contentDigest"`
	Algorithm       string `json:"algorithm"`
	KeyID           string `json:"keyId"`
	PublicKey       string `json:"publicKey"` // hex
	Signature       string `json:"signature"` // hex
}

// Signer holds one ed25519 key.
type Signer struct {
	priv  ed25519.PrivateKey
	pub   ed25519.PublicKey
	keyID string
}

// NewSigner generates a random key.
func NewSigner(keyID string) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("signing: key generation failed: %w", err)
	}
	return &Signer{priv: priv, pub: pub, keyID: keyID}, nil
}

// NewSignerFromSeed derives a key from masterSeed with HKDF-SHA256, using
// keyID as the info string. The same inputs always yield the same key.
func NewSignerFromSeed(masterSeed []byte, keyID string) (*Signer, error) {
	if len(masterSeed) == 0 {
		return nil, ErrEmptySeed
	}
	r := hkdf.New(sha256.New, masterSeed, []byte(kdfSalt), []byte(keyID))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("signing: HKDF derivation failed: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey), keyID: keyID}, nil
}

func (s *Signer) KeyID() string { return s.keyID }

// PublicKey returns the hex-encoded public key.
func (s *Signer) PublicKey() string { return hex.EncodeToString(s.pub) }

// Attest signs a sealed artifact.
func (s *Signer) Attest(a *contracts.Artifact) (*Attestation, error) {
	if err := builder.Verify(a); err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	digest, err := builder.ContentDigest(a)
	if err != nil {
		return nil, err
	}
	msg, err := payload(a.ArtifactVersion, digest)
	if err != nil {
		return nil, err
	}
	return &Attestation{
		ArtifactVersion: a.ArtifactVersion,
		ContentDigest:   digest,
		Algorithm:       Algorithm,
		KeyID:           s.keyID,
		PublicKey:       s.PublicKey(),
		Signature:       hex.EncodeToString(ed25519.Sign(s.priv, msg)),
	}, nil
}

// Verify checks att against a. When trustedKey is non-empty the attestation
// must also carry that public key.
func Verify(a *contracts.Artifact, att *Attestation, trustedKey string) error {
	if att == nil {
		return ErrBadAttestation
	}
	if att.Algorithm != Algorithm {
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgo, att.Algorithm)
	}
	if trustedKey != "" && att.PublicKey != trustedKey {
		return fmt.Errorf("%w: untrusted key %s", ErrBadSignature, att.KeyID)
	}
	digest, err := builder.ContentDigest(a)
	if err != nil {
		return err
	}
	if digest != att.ContentDigest || a.ArtifactVersion != att.ArtifactVersion {
		return ErrDigestMismatch
	}

	pub, err := hex.DecodeString(att.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public key", ErrBadAttestation)
	}
	sig, err := hex.DecodeString(att.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature", ErrBadAttestation)
	}
	msg, err := payload(att.ArtifactVersion, att.ContentDigest)
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, sig) {
		return ErrBadSignature
	}
	return nil
}

func payload(version, digest string) ([]byte, error) {
	msg, err := canonicalize.JCS(map[string]string{
		"artifactVersion": version,
		"contentDigest":   digest,
	})
	if err != nil {
		return nil, fmt.Errorf("signing: canonicalize payload: %w", err)
	}
	return msg, nil
}
