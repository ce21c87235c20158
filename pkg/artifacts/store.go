// Package artifacts persists canonical contract artifacts in a
// content-addressed blob store.
package artifacts

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Guffawaffle/majel/pkg/canonicalize"
)

var (
	ErrNotFound    = errors.New("artifacts: blob not found")
	ErrInvalidHash = errors.New("artifacts: invalid hash")
)

// Store is content-addressed storage for artifact bytes.
type Store interface {
	// Store persists data and returns its "sha256:<hex>" content hash.
	// Storing the same bytes twice is a no-op.
	Store(ctx context.Context, data []byte) (string, error)
	// Get retrieves data by content hash. Missing blobs wrap ErrNotFound.
	Get(ctx context.Context, hash string) ([]byte, error)
	Exists(ctx context.Context, hash string) (bool, error)
	Delete(ctx context.Context, hash string) error
}

// contentHash returns the prefixed hash of data and its bare hex.
func contentHash(data []byte) (string, string) {
	raw := canonicalize.HashBytes(data)
	return canonicalize.DigestPrefix + raw, raw
}

// parseHash validates a "sha256:<hex>" hash and returns the hex part.
func parseHash(hash string) (string, error) {
	raw, ok := strings.CutPrefix(hash, canonicalize.DigestPrefix)
	if !ok {
		return "", fmt.Errorf("%w: format %q", ErrInvalidHash, hash)
	}
	if len(raw) != 64 {
		return "", fmt.Errorf("%w: length %q", ErrInvalidHash, hash)
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return raw, nil
}

func blobKey(prefix, raw string) string {
	return prefix + raw + ".blob"
}

// FileStore keeps blobs as files in one directory.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	//nolint:gosec // G301: shared artifact directory
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("artifacts: ensure dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(raw string) string {
	return filepath.Join(s.baseDir, blobKey("", raw))
}

func (s *FileStore) Store(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, raw := contentHash(data)
	path := s.path(raw)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}

	// Write to temp, then rename.
	tmp := path + ".tmp"
	//nolint:gosec // G306: blobs are world-readable
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("artifacts: write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("artifacts: commit blob: %w", err)
	}
	return hash, nil
}

func (s *FileStore) Get(ctx context.Context, hash string) ([]byte, error) {
	raw, err := parseHash(hash)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path(raw)) //nolint:gosec // hash validated as hex
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("artifacts: open %s: %w", hash, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("artifacts: read %s: %w", hash, err)
	}
	return data, nil
}

func (s *FileStore) Exists(ctx context.Context, hash string) (bool, error) {
	raw, err := parseHash(hash)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err = os.Stat(s.path(raw))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("artifacts: stat %s: %w", hash, err)
	}
}

func (s *FileStore) Delete(ctx context.Context, hash string) error {
	raw, err := parseHash(hash)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(raw)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("artifacts: delete %s: %w", hash, err)
	}
	return nil
}
