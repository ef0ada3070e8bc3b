package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/plate"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

const trackingColumns = `id, uid, entry_plate, entry_time_ms, entry_image_ref, status,
  exit_time_ms, exit_plate, exit_image_ref, match_status, admin_reason,
  created_at_ms, updated_at_ms`

// EnterVehicle checks for an open session and inserts in one worker
// transaction. The partial unique index on (uid) WHERE status='inside'
// backs the same rule at the schema level.
func (s *Store) EnterVehicle(ctx context.Context, rec store.EntryRecord) (types.TrackingRecord, error) {
	var out types.TrackingRecord
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := s.openSession(ctx, tx, rec.UID)
		switch {
		case err == nil:
			out = existing
			return store.ErrAlreadyInside
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("EnterVehicle lookup: %w", err)
		}

		out = types.TrackingRecord{
			ID:            rec.ID,
			UID:           rec.UID,
			EntryPlate:    rec.Plate,
			EntryTime:     rec.At,
			EntryImageRef: rec.ImageRef,
			Status:        types.StatusInside,
			CreatedAt:     rec.At,
			UpdatedAt:     rec.At,
		}
		return s.insertSession(ctx, tx, out)
	})
	return out, err
}

func (s *Store) ManualEntry(ctx context.Context, rec store.EntryRecord) (types.TrackingRecord, error) {
	out := types.TrackingRecord{
		ID:            rec.ID,
		EntryPlate:    rec.Plate,
		EntryTime:     rec.At,
		EntryImageRef: rec.ImageRef,
		Status:        types.StatusManualEntry,
		CreatedAt:     rec.At,
		UpdatedAt:     rec.At,
	}
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.insertSession(ctx, tx, out)
	})
	return out, err
}

func (s *Store) ExitVehicle(ctx context.Context, rec store.ExitRecord) (types.TrackingRecord, error) {
	var out types.TrackingRecord
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		open, err := s.openSession(ctx, tx, rec.UID)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNoEntryRecord
		}
		if err != nil {
			return fmt.Errorf("ExitVehicle lookup: %w", err)
		}

		match := types.MatchMismatch
		if plate.Match(open.EntryPlate, rec.Plate) {
			match = types.MatchOK
		}

		at := rec.At
		open.Status = types.StatusCompleted
		open.ExitTime = &at
		open.ExitPlate = rec.Plate
		open.ExitImageRef = rec.ImageRef
		open.MatchStatus = match
		open.UpdatedAt = at

		if err := s.closeSession(ctx, tx, open); err != nil {
			return fmt.Errorf("ExitVehicle: %w", err)
		}
		out = open
		return nil
	})
	return out, err
}

func (s *Store) ForceExit(ctx context.Context, uid, reason string, at time.Time) (types.TrackingRecord, error) {
	var out types.TrackingRecord
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		open, err := s.openSession(ctx, tx, uid)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNoEntryRecord
		}
		if err != nil {
			return fmt.Errorf("ForceExit lookup: %w", err)
		}

		open.Status = types.StatusForceExit
		open.ExitTime = &at
		open.ExitPlate = types.ForceExitPlate
		open.MatchStatus = types.MatchAdminOverride
		open.AdminReason = reason
		open.UpdatedAt = at

		if err := s.closeSession(ctx, tx, open); err != nil {
			return fmt.Errorf("ForceExit: %w", err)
		}
		out = open
		return nil
	})
	return out, err
}

func (s *Store) ListInside(ctx context.Context) ([]types.TrackingRecord, error) {
	return s.querySessions(ctx, "ListInside",
		`WHERE status = 'inside' ORDER BY entry_time_ms DESC`, nil, 0)
}

func (s *Store) History(ctx context.Context, uid string, limit int) ([]types.TrackingRecord, error) {
	if uid == "" {
		return s.querySessions(ctx, "History", `ORDER BY entry_time_ms DESC`, nil, limit)
	}
	return s.querySessions(ctx, "History",
		`WHERE uid = ? ORDER BY entry_time_ms DESC`, []any{uid}, limit)
}

func (s *Store) Mismatches(ctx context.Context, limit int) ([]types.TrackingRecord, error) {
	return s.querySessions(ctx, "Mismatches",
		`WHERE match_status = 'mismatch' ORDER BY exit_time_ms DESC`, nil, limit)
}

func (s *Store) openSession(ctx context.Context, tx *sql.Tx, uid string) (types.TrackingRecord, error) {
	row := tx.QueryRowContext(ctx, s.q(`
SELECT `+trackingColumns+` FROM vehicle_tracking WHERE uid = ? AND status = 'inside';`), uid)
	return scanSession(row)
}

func (s *Store) insertSession(ctx context.Context, tx *sql.Tx, r types.TrackingRecord) error {
	var uid any
	if r.UID != "" {
		uid = r.UID
	}
	if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO vehicle_tracking(
  id, uid, entry_plate, entry_time_ms, entry_image_ref, status,
  created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`),
		r.ID, uid, r.EntryPlate, toMs(r.EntryTime), r.EntryImageRef, string(r.Status),
		toMs(r.CreatedAt), toMs(r.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) closeSession(ctx context.Context, tx *sql.Tx, r types.TrackingRecord) error {
	res, err := tx.ExecContext(ctx, s.q(`
UPDATE vehicle_tracking SET
  status = ?, exit_time_ms = ?, exit_plate = ?, exit_image_ref = ?,
  match_status = ?, admin_reason = ?, updated_at_ms = ?
WHERE id = ? AND status = 'inside';`),
		string(r.Status), toMs(*r.ExitTime), r.ExitPlate, r.ExitImageRef,
		string(r.MatchStatus), r.AdminReason, toMs(r.UpdatedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("close session %s: %d rows updated", r.ID, n)
	}
	return nil
}

func (s *Store) querySessions(ctx context.Context, op, where string, args []any, limit int) ([]types.TrackingRecord, error) {
	lim, largs := limitArgs(limit)
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+trackingColumns+` FROM vehicle_tracking `+where+lim+`;`),
		append(args, largs...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []types.TrackingRecord
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanSession(sc scanner) (types.TrackingRecord, error) {
	var (
		r                        types.TrackingRecord
		uid                      sql.NullString
		entryMs, createdMs, upMs int64
		exitMs                   sql.NullInt64
		status, match            string
	)
	err := sc.Scan(
		&r.ID, &uid, &r.EntryPlate, &entryMs, &r.EntryImageRef, &status,
		&exitMs, &r.ExitPlate, &r.ExitImageRef, &match, &r.AdminReason,
		&createdMs, &upMs,
	)
	if err != nil {
		return types.TrackingRecord{}, err
	}
	r.UID = uid.String
	r.EntryTime = fromMs(entryMs)
	r.Status = types.TrackingStatus(status)
	r.MatchStatus = types.MatchStatus(match)
	if exitMs.Valid {
		t := fromMs(exitMs.Int64)
		r.ExitTime = &t
	}
	r.CreatedAt = fromMs(createdMs)
	r.UpdatedAt = fromMs(upMs)
	return r, nil
}
