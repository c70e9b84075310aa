// Package redis stores account records in Redis, one binary-encoded value
// per email.
//
// Update is an optimistic WATCH/MULTI transaction. A transaction that loses
// a race is retried with a short constant backoff; no lock is held in Redis.
// Locker is the separate cross-process send lock for engines sharing one
// Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/MrEthical07/credgate/account"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// ErrUnavailable wraps Redis transport failures.
var ErrUnavailable = errors.New("account redis unavailable")

// ErrContention is returned when Update keeps losing the optimistic race.
var ErrContention = errors.New("account update contention")

// Config controls key naming and conflict retries.
type Config struct {
	Prefix       string
	MaxRetries   uint64
	RetryBackoff time.Duration
}

// Store implements account.Store on a redis.UniversalClient.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	retry  func() retry.Backoff
	now    func() time.Time
}

// New returns a Store. Zero config fields take the defaults: prefix "cg",
// 8 retries, 2ms backoff.
func New(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "cg"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 8
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Millisecond
	}
	return &Store{
		redis:  client,
		prefix: cfg.Prefix,
		retry: func() retry.Backoff {
			return retry.WithMaxRetries(cfg.MaxRetries, retry.NewConstant(cfg.RetryBackoff))
		},
		now: time.Now,
	}
}

func (s *Store) key(email string) string {
	return s.prefix + ":acct:" + email
}

func (s *Store) FindByEmail(ctx context.Context, email string) (account.Record, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return account.Record{}, account.ErrNotFound
		}
		return account.Record{}, s.unavailable(err)
	}
	return decodeRecord(data)
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(email)).Result()
	if err != nil {
		return false, s.unavailable(err)
	}
	return n > 0, nil
}

// Create stores rec with SET NX, so a second record for the same email is
// rejected by Redis itself.
func (s *Store) Create(ctx context.Context, rec account.Record) (account.Record, error) {
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	encoded, err := encodeRecord(rec)
	if err != nil {
		return account.Record{}, err
	}
	ok, err := s.redis.SetNX(ctx, s.key(rec.Email), encoded, 0).Result()
	if err != nil {
		return account.Record{}, s.unavailable(err)
	}
	if !ok {
		return account.Record{}, account.ErrDuplicateEmail
	}
	return rec.Clone(), nil
}

// Save upserts the record for rec.Email inside WATCH/MULTI. An existing
// record keeps its ID and CreatedAt.
func (s *Store) Save(ctx context.Context, rec account.Record) (account.Record, error) {
	key := s.key(rec.Email)
	var out account.Record

	err := retry.Do(ctx, s.retry(), func(ctx context.Context) error {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			next := rec.Clone()
			now := s.now().UTC()

			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				current, err := decodeRecord(data)
				if err != nil {
					return err
				}
				next.ID = current.ID
				next.CreatedAt = current.CreatedAt
			case errors.Is(err, redis.Nil):
				if next.CreatedAt.IsZero() {
					next.CreatedAt = now
				}
			default:
				return err
			}
			next.UpdatedAt = now

			encoded, err := encodeRecord(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			if err != nil {
				return err
			}

			out = next
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(ErrContention)
		}
		return err
	})
	if err != nil {
		return account.Record{}, s.watchError(err)
	}
	return out.Clone(), nil
}

// Update reads, mutates and writes the record inside WATCH/MULTI. fn may run
// more than once when another writer commits first, so it must not have
// side effects outside the record.
func (s *Store) Update(ctx context.Context, email string, fn func(*account.Record) error) (account.Record, error) {
	key := s.key(email)
	var out account.Record

	err := retry.Do(ctx, s.retry(), func(ctx context.Context) error {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return account.ErrNotFound
				}
				return err
			}

			current, err := decodeRecord(data)
			if err != nil {
				return err
			}
			next := current.Clone()
			if err := fn(&next); err != nil {
				return err
			}
			next.ID = current.ID
			next.Email = current.Email
			next.UpdatedAt = s.now().UTC()

			encoded, err := encodeRecord(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			if err != nil {
				return err
			}

			out = next
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(ErrContention)
		}
		return err
	})
	if err != nil {
		return account.Record{}, s.watchError(err)
	}

	return out.Clone(), nil
}

// watchError classifies the result of a WATCH transaction. Anything that is
// neither a store nor a transport failure is the callback's own error.
func (s *Store) watchError(err error) error {
	switch {
	case errors.Is(err, ErrContention),
		errors.Is(err, account.ErrNotFound),
		errors.Is(err, errCorruptRecord),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	var redisErr redis.Error
	if errors.As(err, &redisErr) || isTransportError(err) {
		return s.unavailable(err)
	}
	return err
}

func (s *Store) unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func isTransportError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
