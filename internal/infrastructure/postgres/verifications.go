package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-verify-nosql/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const schema = `
CREATE TABLE IF NOT EXISTS verification_codes (
	id      TEXT PRIMARY KEY,
	context TEXT NOT NULL,
	subject TEXT NOT NULL,
	expires BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS verification_codes_expires_idx ON verification_codes (expires);
`

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VerificationStore keeps codes in a single table. A claim is one
// DELETE ... RETURNING statement, so concurrent claims serialize on the row lock.
type VerificationStore struct {
	db DB
}

func NewVerificationStore(db DB) *VerificationStore {
	return &VerificationStore{db: db}
}

// EnsureSchema creates the table and expiry index if they are missing.
func (s *VerificationStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create verification_codes schema: %w", err)
	}
	return nil
}

// Put inserts the code. Postgres has no per-row TTL; expired rows are
// removed by PurgeExpired.
func (s *VerificationStore) Put(ctx context.Context, v *domain.VerificationCode, _ time.Duration) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO verification_codes (id, context, subject, expires)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, v.ID, string(v.Context), v.Subject, v.Expires)
	if err != nil {
		return fmt.Errorf("insert verification code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("verification code id taken: %w", domain.ErrConflict)
	}
	return nil
}

func (s *VerificationStore) DeleteAndReturn(ctx context.Context, id string) (*domain.VerificationCode, error) {
	var (
		v       domain.VerificationCode
		codeCtx string
	)
	err := s.db.QueryRow(ctx, `
		DELETE FROM verification_codes
		WHERE id = $1
		RETURNING id, context, subject, expires
	`, id).Scan(&v.ID, &codeCtx, &v.Subject, &v.Expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete verification code: %w", err)
	}
	v.Context = domain.CodeContext(codeCtx)
	return &v, nil
}

// PurgeExpired deletes rows whose expiry is at or before now.
func (s *VerificationStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM verification_codes WHERE expires <= $1`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge verification codes: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
