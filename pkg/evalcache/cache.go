// Package evalcache caches crew evaluation results.
//
// An evaluation is a pure function of the artifact version and the request,
// so entries never go stale; they are only evicted. Keys are canonical
// digests of both.
package evalcache

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Guffawaffle/majel/pkg/canonicalize"
)

// DefaultSize is the in-process entry count used when none is configured.
const DefaultSize = 1024

// Cache stores encoded results by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key derives the cache key of one evaluation.
func Key(artifactVersion string, request any) (string, error) {
	d, err := canonicalize.Digest(map[string]any{
		"artifactVersion": artifactVersion,
		"request":         request,
	})
	if err != nil {
		return "", fmt.Errorf("evalcache: key: %w", err)
	}
	return d, nil
}

// Load decodes the entry under key into dst. It reports false on a miss.
func Load(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("evalcache: decode %s: %w", key, err)
	}
	return true, nil
}

// Save encodes v under key.
func Save(ctx context.Context, c Cache, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("evalcache: encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data)
}

// LRU is a bounded in-process cache.
type LRU struct {
	c *lru.Cache[string, []byte]
}

func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("evalcache: %w", err)
	}
	return &LRU{c: c}, nil
}

func (l *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.c.Get(key)
	return v, ok, nil
}

func (l *LRU) Set(_ context.Context, key string, value []byte) error {
	l.c.Add(key, value)
	return nil
}

// Len returns the number of cached entries.
func (l *LRU) Len() int { return l.c.Len() }

// Tiered reads through a local cache to a shared one and backfills the
// local cache on remote hits.
type Tiered struct {
	Local  Cache
	Remote Cache
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.Local.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}
	v, ok, err := t.Remote.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.Local.Set(ctx, key, v)
	return v, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	if err := t.Local.Set(ctx, key, value); err != nil {
		return err
	}
	return t.Remote.Set(ctx, key, value)
}
