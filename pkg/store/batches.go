package store

import (
	"context"
	"fmt"
)

const batchColumns = `batch_id, batch_digest, base_version, new_version, operations, receipt, applied_at`

// PutBatch records an applied override batch.
func (s *VersionIndex) PutBatch(ctx context.Context, b BatchRecord) error {
	if b.AppliedAt.IsZero() {
		b.AppliedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO override_batches (`+batchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		b.BatchID, b.BatchDigest, b.BaseVersion, b.NewVersion, b.Operations, b.Receipt, formatTime(b.AppliedAt),
	)
	if err != nil {
		return fmt.Errorf("store: insert batch %s: %w", b.BatchID, err)
	}
	return nil
}

// BatchesFrom returns the batches applied on top of baseVersion, oldest
// first.
func (s *VersionIndex) BatchesFrom(ctx context.Context, baseVersion string) ([]BatchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+batchColumns+` FROM override_batches WHERE base_version = ? ORDER BY applied_at, batch_id`),
		baseVersion)
	if err != nil {
		return nil, fmt.Errorf("store: list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []BatchRecord
	for rows.Next() {
		var (
			b       BatchRecord
			applied string
		)
		if err := rows.Scan(&b.BatchID, &b.BatchDigest, &b.BaseVersion, &b.NewVersion, &b.Operations, &b.Receipt, &applied); err != nil {
			return nil, fmt.Errorf("store: scan batch: %w", err)
		}
		b.AppliedAt = parseTime(applied)
		out = append(out, b)
	}
	return out, rows.Err()
}
