package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type sampleCard struct {
	uid, name, department string
}

var sampleCards = []sampleCard{
	{"A1B2C3D4", "Nguyễn Văn A", "IT"},
	{"E5F6G7H8", "Trần Thị B", "HR"},
	{"I9J0K1L2", "Lê Văn C", "Security"},
}

// SeedDev inserts the sample credentials when the credentials table is
// empty. It never touches a table that already has rows.
func SeedDev(ctx context.Context, conn *sql.DB, driver string) (int, error) {
	var n int
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM credentials;").Scan(&n); err != nil {
		return 0, fmt.Errorf("seed count credentials: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	now := time.Now().UTC().UnixMilli()
	q := Rebind(driver, `
INSERT INTO credentials(uid, holder_name, department, status, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, 'active', ?, ?)
ON CONFLICT(uid) DO NOTHING;`)

	for _, c := range sampleCards {
		if _, err := conn.ExecContext(ctx, q, c.uid, c.name, c.department, now, now); err != nil {
			return 0, fmt.Errorf("seed credential %s: %w", c.uid, err)
		}
	}
	return len(sampleCards), nil
}
