package artifacts

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewStoreFromEnv_Default(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("ARTIFACT_STORAGE_TYPE", "")
	t.Setenv("DATA_DIR", tmpDir)

	store, err := NewStoreFromEnv(context.Background())
	if err != nil {
		t.Fatalf("NewStoreFromEnv failed: %v", err)
	}

	fs, ok := store.(*FileStore)
	if !ok {
		t.Fatalf("Expected *FileStore, got %T", store)
	}
	if want := filepath.Join(tmpDir, "artifacts"); fs.baseDir != want {
		t.Errorf("Expected baseDir %s, got %s", want, fs.baseDir)
	}
}

func TestNewStoreFromEnv_ExplicitFS(t *testing.T) {
	t.Setenv("ARTIFACT_STORAGE_TYPE", "fs")
	t.Setenv("DATA_DIR", t.TempDir())

	store, err := NewStoreFromEnv(context.Background())
	if err != nil {
		t.Fatalf("NewStoreFromEnv failed: %v", err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Fatalf("Expected *FileStore, got %T", store)
	}
}

func TestConfigFromEnv_RegionFallback(t *testing.T) {
	t.Setenv("ARTIFACT_REGION", "")
	t.Setenv("AWS_REGION", "eu-west-2")
	t.Setenv("ARTIFACT_USE_SSL", "true")

	cfg := ConfigFromEnv()
	if cfg.Region != "eu-west-2" {
		t.Errorf("Expected region eu-west-2, got %q", cfg.Region)
	}
	if !cfg.UseSSL {
		t.Error("Expected UseSSL")
	}
}

func TestNewStore_MissingBucket(t *testing.T) {
	for _, typ := range []StoreType{StoreTypeS3, StoreTypeGCS, StoreTypeMinIO} {
		_, err := NewStore(context.Background(), Config{Type: typ, Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
		if err == nil {
			t.Fatalf("%s: expected error for missing bucket", typ)
		}
		msg := strings.ToLower(err.Error())
		if !strings.Contains(msg, "bucket") && !strings.Contains(msg, "gcs storage is not enabled") {
			t.Errorf("%s: unexpected error: %v", typ, err)
		}
	}
}

func TestNewStore_MinIOCredentials(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Type: StoreTypeMinIO, Endpoint: "localhost:9000", Bucket: "majel"})
	if err == nil || !strings.Contains(err.Error(), "access key") {
		t.Fatalf("Expected credentials error, got %v", err)
	}
}

func TestNewStore_UnsupportedType(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Type: "azure"})
	if err == nil || !strings.Contains(err.Error(), "unsupported storage type") {
		t.Fatalf("Expected unsupported type error, got %v", err)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()
	data := []byte(`{"schemaVersion":"1.0.0"}`)

	hash, err := store.Store(ctx, data)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !strings.HasPrefix(hash, "sha256:") {
		t.Errorf("Expected sha256: prefix, got %s", hash)
	}

	again, err := store.Store(ctx, data)
	if err != nil || again != hash {
		t.Fatalf("Second store: %s, %v", again, err)
	}

	got, err := store.Get(ctx, hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Expected %q, got %q", data, got)
	}

	ok, err := store.Exists(ctx, hash)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := store.Delete(ctx, hash); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, _ := store.Exists(ctx, hash); ok {
		t.Fatal("Expected blob to be gone")
	}
	if err := store.Delete(ctx, hash); err != nil {
		t.Fatalf("Deleting a missing blob should succeed: %v", err)
	}
}

func TestFileStore_GetNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	_, err = store.Get(context.Background(), "sha256:"+strings.Repeat("0", 64))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_InvalidHash(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()
	for _, h := range []string{"invalid-hash", "sha256:abc", "sha256:" + strings.Repeat("z", 64), "md5:" + strings.Repeat("0", 64)} {
		if _, err := store.Get(ctx, h); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("%q: expected ErrInvalidHash, got %v", h, err)
		}
	}
}
