package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/canonicalize"
	"github.com/Guffawaffle/majel/pkg/contracts"
)

var ErrCorrupt = errors.New("artifacts: stored artifact failed verification")

// Registry stores contract artifacts as canonical JSON blobs. Only sealed
// artifacts are accepted, and every load is re-verified against its
// artifactVersion.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Store returns the underlying blob store.
func (r *Registry) Store() Store { return r.store }

// PutArtifact verifies a and persists its canonical bytes. It returns the
// blob hash.
func (r *Registry) PutArtifact(ctx context.Context, a *contracts.Artifact) (string, error) {
	if err := builder.Verify(a); err != nil {
		return "", fmt.Errorf("artifacts: refusing unsealed artifact: %w", err)
	}
	data, err := canonicalize.JCS(a)
	if err != nil {
		return "", fmt.Errorf("artifacts: canonicalize: %w", err)
	}
	return r.store.Store(ctx, data)
}

// GetArtifact loads and verifies the artifact stored under hash.
func (r *Registry) GetArtifact(ctx context.Context, hash string) (*contracts.Artifact, error) {
	data, err := r.store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	if got, _ := contentHash(data); got != hash {
		return nil, fmt.Errorf("%w: content hash %s, want %s", ErrCorrupt, got, hash)
	}
	var a contracts.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := builder.Verify(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &a, nil
}
