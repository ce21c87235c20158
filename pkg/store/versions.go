package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const artifactColumns = `version, blob_hash, parent_version, snapshot_version, effect_count, unmapped_count, attestation, created_at`

// PutArtifact records a version. Recording an existing version is a no-op,
// since the same version always names the same content.
func (s *VersionIndex) PutArtifact(ctx context.Context, r ArtifactRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock()
	}
	query := s.rebind(`INSERT INTO artifact_versions (` + artifactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (version) DO NOTHING`)
	_, err := s.db.ExecContext(ctx, query,
		r.Version, r.BlobHash, r.ParentVersion, r.SnapshotVersion,
		r.EffectCount, r.UnmappedCount, r.Attestation, formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("store: insert artifact %s: %w", r.Version, err)
	}
	return nil
}

// GetArtifact returns the record for version.
func (s *VersionIndex) GetArtifact(ctx context.Context, version string) (*ArtifactRecord, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+artifactColumns+` FROM artifact_versions WHERE version = ?`), version)
	r, err := scanArtifact(row)
	if err != nil {
		return nil, fmt.Errorf("store: artifact %s: %w", version, err)
	}
	return r, nil
}

// Latest returns the most recently recorded version.
func (s *VersionIndex) Latest(ctx context.Context) (*ArtifactRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifact_versions ORDER BY created_at DESC, version DESC LIMIT 1`)
	r, err := scanArtifact(row)
	if err != nil {
		return nil, fmt.Errorf("store: latest artifact: %w", err)
	}
	return r, nil
}

// ListArtifacts returns up to limit versions, newest first.
func (s *VersionIndex) ListArtifacts(ctx context.Context, limit int) ([]ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+artifactColumns+` FROM artifact_versions ORDER BY created_at DESC, version DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("store: list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ArtifactRecord
	for rows.Next() {
		r, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list artifacts: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// SetAttestation stores a signed attestation for version.
func (s *VersionIndex) SetAttestation(ctx context.Context, version, attestation string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE artifact_versions SET attestation = ? WHERE version = ?`), attestation, version)
	if err != nil {
		return fmt.Errorf("store: attest %s: %w", version, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: attest %s: %w", version, ErrNotFound)
	}
	return nil
}

// Lineage walks parent links from version back to its root build.
func (s *VersionIndex) Lineage(ctx context.Context, version string) ([]ArtifactRecord, error) {
	var out []ArtifactRecord
	seen := map[string]bool{}
	for v := version; v != "" && !seen[v]; {
		seen[v] = true
		r, err := s.GetArtifact(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
		v = r.ParentVersion
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(sc scanner) (*ArtifactRecord, error) {
	var (
		r       ArtifactRecord
		created string
	)
	err := sc.Scan(&r.Version, &r.BlobHash, &r.ParentVersion, &r.SnapshotVersion,
		&r.EffectCount, &r.UnmappedCount, &r.Attestation, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(created)
	return &r, nil
}
