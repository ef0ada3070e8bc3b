// Package sqlstore implements store.Store on database/sql for the sqlite
// and postgres drivers. Reads go straight to the pool; every write runs on
// the shared db.Worker.
package sqlstore

import (
	"context"
	"database/sql"
	"time"

	dbpkg "github.com/BrandonDHaskell/Parkgate/server/internal/db"
)

type Store struct {
	db     *sql.DB
	writer *dbpkg.Worker
	driver string
}

func New(db *sql.DB, writer *dbpkg.Worker, driver string) *Store {
	if driver == "" {
		driver = dbpkg.DriverSQLite
	}
	return &Store{db: db, writer: writer, driver: driver}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) q(query string) string {
	return dbpkg.Rebind(s.driver, query)
}

func toMs(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixMilli()
}

func fromMs(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// limitArgs returns a LIMIT suffix and its argument; limit <= 0 means unbounded.
func limitArgs(limit int) (string, []any) {
	if limit <= 0 {
		return "", nil
	}
	return " LIMIT ?", []any{limit}
}
