// Package store indexes artifact versions and applied override batches in
// SQL. Artifact bytes live in the artifacts blob store; this index records
// lineage, blob hashes, attestations and receipts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // "pgx"
	_ "github.com/lib/pq"              // "postgres"
	_ "modernc.org/sqlite"             // "sqlite"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrUnsupportedDriver = errors.New("store: unsupported driver")
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return DialectSQLite, nil
	case "postgres", "pgx":
		return DialectPostgres, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// ArtifactRecord is one indexed artifact version.
type ArtifactRecord struct {
	Version         string
	BlobHash        string
	ParentVersion   string // empty for a fresh build
	SnapshotVersion string
	EffectCount     int
	UnmappedCount   int
	Attestation     string // JSON, empty when unsigned
	CreatedAt       time.Time
}

// BatchRecord is one applied override batch.
type BatchRecord struct {
	BatchID     string
	BatchDigest string
	BaseVersion string
	NewVersion  string
	Operations  int
	Receipt     string // JSON
	AppliedAt   time.Time
}

// VersionIndex is the SQL-backed index.
type VersionIndex struct {
	db      *sql.DB
	dialect Dialect
	clock   func() time.Time
}

// Open connects with driver ("sqlite", "postgres" or "pgx") and migrates.
func Open(ctx context.Context, driver, dsn string) (*VersionIndex, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// One writer; also keeps ":memory:" on a single connection.
		db.SetMaxOpenConns(1)
	}
	idx := New(db, dialect)
	if err := idx.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB, dialect Dialect) *VersionIndex {
	return &VersionIndex{db: db, dialect: dialect, clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (s *VersionIndex) WithClock(clock func() time.Time) *VersionIndex {
	s.clock = clock
	return s
}

func (s *VersionIndex) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS artifact_versions (
	version          TEXT PRIMARY KEY,
	blob_hash        TEXT NOT NULL,
	parent_version   TEXT NOT NULL DEFAULT '',
	snapshot_version TEXT NOT NULL DEFAULT '',
	effect_count     INTEGER NOT NULL DEFAULT 0,
	unmapped_count   INTEGER NOT NULL DEFAULT 0,
	attestation      TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS override_batches (
	batch_id     TEXT PRIMARY KEY,
	batch_digest TEXT NOT NULL,
	base_version TEXT NOT NULL,
	new_version  TEXT NOT NULL,
	operations   INTEGER NOT NULL,
	receipt      TEXT NOT NULL,
	applied_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS override_batches_base ON override_batches (base_version);
`

// Migrate creates the tables if they do not exist.
func (s *VersionIndex) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *VersionIndex) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
