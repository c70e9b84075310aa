package postgres

import (
	"context"

	"github.com/samber/oops"
)

// Locker is a send lock shared by every process using the same database. It
// satisfies credgate.SendLocker.
//
// Each held key pins one pooled connection inside a transaction that owns a
// pg_advisory_xact_lock. Unlocking rolls the transaction back, which also
// releases the lock if the process dies mid-send.
type Locker struct {
	db     DB
	prefix string
}

// NewLocker returns a Locker on db. Keys are hashed as "credgate:send:<key>".
func NewLocker(db DB) *Locker {
	return &Locker{db: db, prefix: "credgate:send:"}
}

// Lock blocks until key is held or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, lockError(ctx, err, "begin lock", key)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, l.prefix+key); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return nil, lockError(ctx, err, "acquire lock", key)
	}
	return func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}, nil
}

func lockError(ctx context.Context, err error, operation, key string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return oops.Code("STORE_LOCK").With("operation", operation).With("key", key).Wrap(err)
}
