package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/BrandonDHaskell/Parkgate/server/internal/db"
)

func openTemp(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "parkgate.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// ── Open / Migrate ───────────────────────────────────────────────────────────

func TestOpen_AppliesMigrations(t *testing.T) {
	conn := openTemp(t)

	for _, table := range []string{"credentials", "access_logs", "vehicle_tracking", "plate_observations", "readers"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// Re-running is a no-op.
	if err := db.Migrate(context.Background(), conn, db.DriverSQLite); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := db.Open(context.Background(), db.Config{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestInsideIndex_RejectsSecondOpenSession(t *testing.T) {
	conn := openTemp(t)

	insert := `INSERT INTO vehicle_tracking(id, uid, entry_plate, entry_time_ms, status, created_at_ms, updated_at_ms)
VALUES (?, 'U1', '30A-111', 1, ?, 1, 1)`

	if _, err := conn.Exec(insert, "r1", "inside"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := conn.Exec(insert, "r2", "inside"); err == nil {
		t.Fatal("expected unique violation for a second inside session")
	}
	if _, err := conn.Exec(insert, "r3", "completed"); err != nil {
		t.Fatalf("completed session should not conflict: %v", err)
	}
}

// ── SeedDev ──────────────────────────────────────────────────────────────────

func TestSeedDev_OnlyWhenEmpty(t *testing.T) {
	conn := openTemp(t)
	ctx := context.Background()

	n, err := db.SeedDev(ctx, conn, db.DriverSQLite)
	if err != nil {
		t.Fatalf("SeedDev: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 seeded credentials, got %d", n)
	}

	n, err = db.SeedDev(ctx, conn, db.DriverSQLite)
	if err != nil {
		t.Fatalf("second SeedDev: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no seeding on a non-empty table, got %d", n)
	}

	var name string
	if err := conn.QueryRow(`SELECT holder_name FROM credentials WHERE uid = 'A1B2C3D4'`).Scan(&name); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if name != "Nguyễn Văn A" {
		t.Errorf("unexpected holder %q", name)
	}
}

// ── Rebind ───────────────────────────────────────────────────────────────────

func TestRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = ?"
	if got := db.Rebind(db.DriverSQLite, q); got != q {
		t.Errorf("sqlite should be untouched, got %q", got)
	}
	if got := db.Rebind(db.DriverPostgres, q); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("unexpected postgres rebind %q", got)
	}
}

// ── Worker ───────────────────────────────────────────────────────────────────

func TestWorker_SerializesAndRollsBack(t *testing.T) {
	conn := openTemp(t)
	w := db.NewWorker(conn)
	defer w.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
				var n int
				if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM readers`).Scan(&n); err != nil {
					return err
				}
				_, err := tx.ExecContext(ctx, `INSERT INTO readers(device_id, last_seen_ms, scans) VALUES (?, 1, 1)`,
					"reader-"+string(rune('a'+n)))
				return err
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM readers`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 20 {
		t.Fatalf("expected 20 rows from serialized read-then-write, got %d", n)
	}

	boom := errors.New("boom")
	err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM readers`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := conn.QueryRow(`SELECT COUNT(*) FROM readers`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 20 {
		t.Errorf("rollback failed, %d rows remain", n)
	}
}

func TestWorker_DoAfterClose(t *testing.T) {
	conn := openTemp(t)
	w := db.NewWorker(conn)
	w.Close()
	w.Close()

	err := w.Do(context.Background(), func(context.Context, *sql.Tx) error { return nil })
	if !errors.Is(err, db.ErrWorkerClosed) {
		t.Fatalf("expected ErrWorkerClosed, got %v", err)
	}
}
