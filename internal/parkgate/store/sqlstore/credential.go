package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

const credentialColumns = `uid, holder_name, department, status, created_at_ms, updated_at_ms`

func (s *Store) GetCredential(ctx context.Context, uid string) (types.Credential, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+credentialColumns+` FROM credentials WHERE uid = ?;`), uid)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Credential{}, store.ErrCredentialNotFound
	}
	if err != nil {
		return types.Credential{}, fmt.Errorf("GetCredential: %w", err)
	}
	return c, nil
}

func (s *Store) AddCredential(ctx context.Context, c types.Credential) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
INSERT INTO credentials(`+credentialColumns+`)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(uid) DO NOTHING;`),
			c.UID, c.HolderName, c.Department, string(c.Status), toMs(c.CreatedAt), toMs(c.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("AddCredential insert: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("AddCredential rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrCredentialExists
		}
		return nil
	})
}

func (s *Store) DeactivateCredential(ctx context.Context, uid string, at time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
UPDATE credentials SET status = 'inactive', updated_at_ms = ? WHERE uid = ?;`),
			toMs(at), uid,
		)
		if err != nil {
			return fmt.Errorf("DeactivateCredential update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("DeactivateCredential rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrCredentialNotFound
		}
		return nil
	})
}

func (s *Store) ListActiveCredentials(ctx context.Context) ([]types.Credential, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT `+credentialColumns+` FROM credentials WHERE status = 'active' ORDER BY uid;`))
	if err != nil {
		return nil, fmt.Errorf("ListActiveCredentials: %w", err)
	}
	defer rows.Close()

	var out []types.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActiveCredentials scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CountCredentials(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountCredentials: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(sc scanner) (types.Credential, error) {
	var (
		c                  types.Credential
		status             string
		createdMs, updated int64
	)
	if err := sc.Scan(&c.UID, &c.HolderName, &c.Department, &status, &createdMs, &updated); err != nil {
		return types.Credential{}, err
	}
	c.Status = types.CredentialStatus(status)
	c.CreatedAt = fromMs(createdMs)
	c.UpdatedAt = fromMs(updated)
	return c, nil
}
