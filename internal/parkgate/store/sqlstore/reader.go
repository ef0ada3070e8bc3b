package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

func (s *Store) MarkSeen(ctx context.Context, deviceID string, at time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO readers(device_id, last_seen_ms, scans) VALUES (?, ?, 1)
ON CONFLICT(device_id) DO UPDATE SET
  last_seen_ms = excluded.last_seen_ms,
  scans = readers.scans + 1;`),
			deviceID, toMs(at),
		); err != nil {
			return fmt.Errorf("MarkSeen upsert: %w", err)
		}
		return nil
	})
}

func (s *Store) ListReaders(ctx context.Context) ([]types.Reader, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT device_id, last_seen_ms, scans FROM readers ORDER BY device_id;`)
	if err != nil {
		return nil, fmt.Errorf("ListReaders: %w", err)
	}
	defer rows.Close()

	var out []types.Reader
	for rows.Next() {
		var (
			r    types.Reader
			seen int64
		)
		if err := rows.Scan(&r.DeviceID, &seen, &r.Scans); err != nil {
			return nil, fmt.Errorf("ListReaders scan: %w", err)
		}
		r.LastSeen = fromMs(seen)
		out = append(out, r)
	}
	return out, rows.Err()
}
