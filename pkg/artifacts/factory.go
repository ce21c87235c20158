package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// StoreType names an artifact storage backend.
type StoreType string

const (
	StoreTypeFS    StoreType = "fs"
	StoreTypeS3    StoreType = "s3"
	StoreTypeMinIO StoreType = "minio"
	StoreTypeGCS   StoreType = "gcs"
)

// Config selects and configures a backend.
type Config struct {
	Type    StoreType `yaml:"type"`
	DataDir string    `yaml:"dataDir"`

	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"-"`
	UseSSL    bool   `yaml:"useSSL"`
}

// ConfigFromEnv reads the backend configuration from the environment.
//
//   - ARTIFACT_STORAGE_TYPE: "fs" (default), "s3", "minio" or "gcs"
//   - DATA_DIR: base directory for the filesystem store (default "data")
//   - ARTIFACT_BUCKET, ARTIFACT_PREFIX: bucket and key prefix
//   - ARTIFACT_REGION (falls back to AWS_REGION), ARTIFACT_ENDPOINT
//   - ARTIFACT_ACCESS_KEY, ARTIFACT_SECRET_KEY, ARTIFACT_USE_SSL: MinIO only
func ConfigFromEnv() Config {
	cfg := Config{
		Type:      StoreType(os.Getenv("ARTIFACT_STORAGE_TYPE")),
		DataDir:   os.Getenv("DATA_DIR"),
		Bucket:    os.Getenv("ARTIFACT_BUCKET"),
		Prefix:    os.Getenv("ARTIFACT_PREFIX"),
		Region:    os.Getenv("ARTIFACT_REGION"),
		Endpoint:  os.Getenv("ARTIFACT_ENDPOINT"),
		AccessKey: os.Getenv("ARTIFACT_ACCESS_KEY"),
		SecretKey: os.Getenv("ARTIFACT_SECRET_KEY"),
	}
	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_REGION")
	}
	cfg.UseSSL, _ = strconv.ParseBool(os.Getenv("ARTIFACT_USE_SSL"))
	return cfg
}

// NewStoreFromEnv is NewStore(ctx, ConfigFromEnv()).
func NewStoreFromEnv(ctx context.Context) (Store, error) {
	return NewStore(ctx, ConfigFromEnv())
}

// NewStore builds the configured backend.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "", StoreTypeFS:
		dir := cfg.DataDir
		if dir == "" {
			dir = "data"
		}
		return NewFileStore(filepath.Join(dir, "artifacts"))
	case StoreTypeS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("artifacts: ARTIFACT_BUCKET is required for S3 storage")
		}
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Store(ctx, S3StoreConfig{Bucket: cfg.Bucket, Region: region, Endpoint: cfg.Endpoint, Prefix: cfg.Prefix})
	case StoreTypeMinIO:
		return NewMinIOStore(MinIOStoreConfig{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			UseSSL:    cfg.UseSSL,
		})
	case StoreTypeGCS:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("artifacts: ARTIFACT_BUCKET is required for GCS storage")
		}
		return newGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("artifacts: unsupported storage type: %s", cfg.Type)
	}
}
