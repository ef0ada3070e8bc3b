package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

func (s *Store) AppendAccessLog(ctx context.Context, e types.AccessLogEntry) error {
	ctxJSON := []byte("{}")
	if len(e.Context) > 0 {
		b, err := json.Marshal(e.Context)
		if err != nil {
			return fmt.Errorf("AppendAccessLog marshal context: %w", err)
		}
		ctxJSON = b
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO access_logs(id, uid, allowed, ts_ms, context) VALUES (?, ?, ?, ?, ?);`),
			e.ID, e.UID, boolInt(e.Allowed), toMs(e.Timestamp), string(ctxJSON),
		); err != nil {
			return fmt.Errorf("AppendAccessLog insert: %w", err)
		}
		return nil
	})
}

func (s *Store) ListAccessLogs(ctx context.Context, uid string, limit int) ([]types.AccessLogEntry, error) {
	query := `SELECT id, uid, allowed, ts_ms, context FROM access_logs`
	var args []any
	if uid != "" {
		query += ` WHERE uid = ?`
		args = append(args, uid)
	}
	query += ` ORDER BY ts_ms DESC, id DESC`
	lim, largs := limitArgs(limit)
	query += lim
	args = append(args, largs...)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("ListAccessLogs: %w", err)
	}
	defer rows.Close()

	var out []types.AccessLogEntry
	for rows.Next() {
		var (
			e       types.AccessLogEntry
			allowed int
			tsMs    int64
			raw     string
		)
		if err := rows.Scan(&e.ID, &e.UID, &allowed, &tsMs, &raw); err != nil {
			return nil, fmt.Errorf("ListAccessLogs scan: %w", err)
		}
		e.Allowed = allowed == 1
		e.Timestamp = fromMs(tsMs)
		if raw != "" && raw != "{}" {
			if err := json.Unmarshal([]byte(raw), &e.Context); err != nil {
				return nil, fmt.Errorf("ListAccessLogs context %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
