package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitCall(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run")
	}
}

func TestWatcher_RerunsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	calls := make(chan struct{}, 16)
	w, err := New(path, func(context.Context) error {
		calls <- struct{}{}
		return errors.New("runs keep going after errors")
	}, Options{Debounce: 20 * time.Millisecond, Interval: time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitCall(t, calls)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o600))
	waitCall(t, calls)

	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, w.Runs(), 2)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "nope", "seed.json"), func(context.Context) error { return nil }, Options{})
	require.NoError(t, err)
	assert.Error(t, w.Run(context.Background()))
}

func TestNew_Defaults(t *testing.T) {
	_, err := New("", nil, Options{})
	assert.ErrorIs(t, err, ErrNoPath)

	w, err := New("seed.json", nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.True(t, filepath.IsAbs(w.path))
}
