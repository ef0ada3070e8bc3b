package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

func (s *Store) SaveObservation(ctx context.Context, o types.PlateObservation) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO plate_observations(id, plate_text, ts_ms, image_ref) VALUES (?, ?, ?, ?);`),
			o.ID, o.PlateText, toMs(o.Timestamp), o.ImageRef,
		); err != nil {
			return fmt.Errorf("SaveObservation insert: %w", err)
		}
		return nil
	})
}

func (s *Store) RecentObservations(ctx context.Context, limit int) ([]types.PlateObservation, error) {
	lim, args := limitArgs(limit)
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT id, plate_text, ts_ms, image_ref FROM plate_observations ORDER BY ts_ms DESC, id DESC`+lim+`;`), args...)
	if err != nil {
		return nil, fmt.Errorf("RecentObservations: %w", err)
	}
	defer rows.Close()

	var out []types.PlateObservation
	for rows.Next() {
		var (
			o    types.PlateObservation
			tsMs int64
		)
		if err := rows.Scan(&o.ID, &o.PlateText, &tsMs, &o.ImageRef); err != nil {
			return nil, fmt.Errorf("RecentObservations scan: %w", err)
		}
		o.Timestamp = fromMs(tsMs)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) PruneObservationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM plate_observations WHERE ts_ms < ?;`), cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneObservationsOlderThan delete: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
