// Package sqlite stores account records in a single SQLite database file
// through the pure-Go modernc.org/sqlite driver.
//
// The store holds one connection, so transactions never overlap and Update
// is a serialized read-modify-write. Timestamps are kept as Unix
// nanoseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/MrEthical07/credgate/account"
)

// Store implements account.Store on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens dsn (a file path or "file:" URI) and enables foreign keys.
// Call ApplyMigrations before first use.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.Code("STORE_OPEN").With("dsn", dsn).Wrap(err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, oops.Code("STORE_OPEN").With("dsn", dsn).Wrap(err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const recordColumns = `id, email, name, password_hash, account_verified,
	reset_code, reset_expires_at, verify_code, verify_expires_at, created_at, updated_at`

const selectColumns = `SELECT ` + recordColumns + ` FROM accounts`

const insertColumns = `INSERT INTO accounts (id, email, name, password_hash, account_verified,
	reset_code, reset_expires_at, verify_code, verify_expires_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *Store) FindByEmail(ctx context.Context, email string) (account.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+` WHERE email = ?`, email))
	if err != nil {
		return account.Record{}, queryError(err, "find account", email)
	}
	return rec, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts WHERE email = ?`, email).Scan(&n)
	if err != nil {
		return false, queryError(err, "check account exists", email)
	}
	return n > 0, nil
}

func (s *Store) Create(ctx context.Context, rec account.Record) (account.Record, error) {
	rec = s.stamp(rec)
	if _, err := s.db.ExecContext(ctx, insertColumns, rowArgs(rec)...); err != nil {
		return account.Record{}, queryError(err, "create account", rec.Email)
	}
	return rec.Clone(), nil
}

// Save inserts rec or overwrites the existing row for rec.Email, keeping the
// stored id and created_at. It returns the row as stored.
func (s *Store) Save(ctx context.Context, rec account.Record) (account.Record, error) {
	rec = s.stamp(rec)
	row := s.db.QueryRowContext(ctx, insertColumns+`
		ON CONFLICT (email) DO UPDATE SET
			name = excluded.name,
			password_hash = excluded.password_hash,
			account_verified = excluded.account_verified,
			reset_code = excluded.reset_code,
			reset_expires_at = excluded.reset_expires_at,
			verify_code = excluded.verify_code,
			verify_expires_at = excluded.verify_expires_at,
			updated_at = excluded.updated_at
		RETURNING `+recordColumns, rowArgs(rec)...)
	saved, err := scanRecord(row)
	if err != nil {
		return account.Record{}, queryError(err, "save account", rec.Email)
	}
	return saved, nil
}

func (s *Store) Update(ctx context.Context, email string, fn func(*account.Record) error) (account.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return account.Record{}, queryError(err, "begin update", email)
	}
	defer func() {
		_ = tx.Rollback() // safe after commit
	}()

	current, err := scanRecord(tx.QueryRowContext(ctx, selectColumns+` WHERE email = ?`, email))
	if err != nil {
		return account.Record{}, queryError(err, "load account", email)
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return account.Record{}, err
	}
	next.ID = current.ID
	next.Email = current.Email
	next.UpdatedAt = s.now().UTC()

	args := rowArgs(next)
	// Drop id and email from the front, then match on email.
	args = append(args[2:], email)
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET
		name = ?, password_hash = ?, account_verified = ?,
		reset_code = ?, reset_expires_at = ?, verify_code = ?, verify_expires_at = ?,
		created_at = ?, updated_at = ?
		WHERE email = ?`, args...); err != nil {
		return account.Record{}, queryError(err, "write account", email)
	}
	if err := tx.Commit(); err != nil {
		return account.Record{}, queryError(err, "commit update", email)
	}
	return next, nil
}

func (s *Store) stamp(rec account.Record) account.Record {
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return rec
}

func rowArgs(rec account.Record) []any {
	resetCode, resetExp := challengeArgs(rec.ResetChallenge)
	verifyCode, verifyExp := challengeArgs(rec.VerifyChallenge)
	return []any{
		rec.ID, rec.Email, rec.Name, rec.PasswordHash, rec.AccountVerified,
		resetCode, resetExp, verifyCode, verifyExp,
		rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
	}
}

func challengeArgs(c *account.Challenge) (sql.NullString, sql.NullInt64) {
	if c == nil {
		return sql.NullString{}, sql.NullInt64{}
	}
	return sql.NullString{String: c.Code, Valid: true}, sql.NullInt64{Int64: c.ExpiresAtMillis, Valid: true}
}

func scanRecord(row *sql.Row) (account.Record, error) {
	var (
		rec                   account.Record
		resetCode, verifyCode sql.NullString
		resetExp, verifyExp   sql.NullInt64
		created, updated      int64
	)
	err := row.Scan(
		&rec.ID, &rec.Email, &rec.Name, &rec.PasswordHash, &rec.AccountVerified,
		&resetCode, &resetExp, &verifyCode, &verifyExp,
		&created, &updated,
	)
	if err != nil {
		return account.Record{}, err
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	if resetCode.Valid && resetExp.Valid {
		rec.ResetChallenge = &account.Challenge{Code: resetCode.String, ExpiresAtMillis: resetExp.Int64}
	}
	if verifyCode.Valid && verifyExp.Valid {
		rec.VerifyChallenge = &account.Challenge{Code: verifyCode.String, ExpiresAtMillis: verifyExp.Int64}
	}
	return rec, nil
}

func queryError(err error, operation, email string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return account.ErrNotFound
	}
	if isUniqueViolation(err) {
		return oops.Code("STORE_DUPLICATE").With("operation", operation).With("email", email).Wrap(account.ErrDuplicateEmail)
	}
	return oops.Code("STORE_QUERY").With("operation", operation).With("email", email).Wrap(err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
