// Package postgres stores account records in PostgreSQL through pgx.
//
// Update locks the row with SELECT ... FOR UPDATE inside a transaction, so
// concurrent updates for one email run one after another while different
// emails proceed in parallel. Driver errors carry oops codes and still match
// the account sentinels with errors.Is.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/MrEthical07/credgate/account"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements account.Store on PostgreSQL.
type Store struct {
	db  DB
	now func() time.Time
}

// New returns a Store using db. Run Migrate first.
func New(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

const recordColumns = `id, email, name, password_hash, account_verified,
	reset_code, reset_expires_at, verify_code, verify_expires_at, created_at, updated_at`

const selectColumns = `SELECT ` + recordColumns + ` FROM accounts`

func (s *Store) FindByEmail(ctx context.Context, email string) (account.Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, selectColumns+` WHERE email = $1`, email))
	if err != nil {
		return account.Record{}, queryError(err, "find account", email)
	}
	return rec, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, queryError(err, "check account exists", email)
	}
	return exists, nil
}

func (s *Store) Create(ctx context.Context, rec account.Record) (account.Record, error) {
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	args := append([]any{rec.ID, rec.Email}, recordArgs(rec)...)
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (id, email, name, password_hash, account_verified,
		reset_code, reset_expires_at, verify_code, verify_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, args...)
	if err != nil {
		return account.Record{}, queryError(err, "create account", rec.Email)
	}
	return rec.Clone(), nil
}

// Save inserts rec or overwrites the existing row for rec.Email. The stored
// id and created_at of an existing row are kept, and the row is returned as
// stored.
func (s *Store) Save(ctx context.Context, rec account.Record) (account.Record, error) {
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	args := append([]any{rec.ID, rec.Email}, recordArgs(rec)...)
	row := s.db.QueryRow(ctx, `INSERT INTO accounts (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			account_verified = EXCLUDED.account_verified,
			reset_code = EXCLUDED.reset_code,
			reset_expires_at = EXCLUDED.reset_expires_at,
			verify_code = EXCLUDED.verify_code,
			verify_expires_at = EXCLUDED.verify_expires_at,
			updated_at = EXCLUDED.updated_at
		RETURNING `+recordColumns, args...)
	saved, err := scanRecord(row)
	if err != nil {
		return account.Record{}, queryError(err, "save account", rec.Email)
	}
	return saved, nil
}

func (s *Store) Update(ctx context.Context, email string, fn func(*account.Record) error) (account.Record, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return account.Record{}, queryError(err, "begin update", email)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanRecord(tx.QueryRow(ctx, selectColumns+` WHERE email = $1 FOR UPDATE`, email))
	if err != nil {
		return account.Record{}, queryError(err, "lock account", email)
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return account.Record{}, err
	}
	next.ID = current.ID
	next.Email = current.Email
	next.UpdatedAt = s.now().UTC()

	args := append([]any{email}, recordArgs(next)...)
	if _, err := tx.Exec(ctx, `UPDATE accounts SET
		name = $2, password_hash = $3, account_verified = $4,
		reset_code = $5, reset_expires_at = $6, verify_code = $7, verify_expires_at = $8,
		created_at = $9, updated_at = $10
		WHERE email = $1`, args...); err != nil {
		return account.Record{}, queryError(err, "write account", email)
	}
	if err := tx.Commit(ctx); err != nil {
		return account.Record{}, queryError(err, "commit update", email)
	}
	return next, nil
}

// recordArgs returns the mutable columns in table order after id and email.
func recordArgs(rec account.Record) []any {
	resetCode, resetExp := challengeArgs(rec.ResetChallenge)
	verifyCode, verifyExp := challengeArgs(rec.VerifyChallenge)
	return []any{
		rec.Name, rec.PasswordHash, rec.AccountVerified,
		resetCode, resetExp, verifyCode, verifyExp,
		rec.CreatedAt, rec.UpdatedAt,
	}
}

func challengeArgs(c *account.Challenge) (*string, *int64) {
	if c == nil {
		return nil, nil
	}
	code, exp := c.Code, c.ExpiresAtMillis
	return &code, &exp
}

func scanRecord(row pgx.Row) (account.Record, error) {
	var (
		rec                   account.Record
		resetCode, verifyCode *string
		resetExp, verifyExp   *int64
	)
	err := row.Scan(
		&rec.ID, &rec.Email, &rec.Name, &rec.PasswordHash, &rec.AccountVerified,
		&resetCode, &resetExp, &verifyCode, &verifyExp,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return account.Record{}, err
	}
	if resetCode != nil && resetExp != nil {
		rec.ResetChallenge = &account.Challenge{Code: *resetCode, ExpiresAtMillis: *resetExp}
	}
	if verifyCode != nil && verifyExp != nil {
		rec.VerifyChallenge = &account.Challenge{Code: *verifyCode, ExpiresAtMillis: *verifyExp}
	}
	return rec, nil
}

func queryError(err error, operation, email string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return account.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return oops.Code("STORE_DUPLICATE").With("operation", operation).With("email", email).Wrap(account.ErrDuplicateEmail)
	}
	return oops.Code("STORE_QUERY").With("operation", operation).With("email", email).Wrap(err)
}
