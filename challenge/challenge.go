package challenge

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/MrEthical07/credgate/account"
)

var (
	// ErrMissing is returned when no challenge of the requested kind is stored.
	ErrMissing = errors.New("challenge missing")
	// ErrMismatch is returned when the supplied code differs from the stored one.
	ErrMismatch = errors.New("challenge code mismatch")
	// ErrExpired is returned when the stored challenge is past its expiry.
	ErrExpired = errors.New("challenge expired")
)

const (
	codeLow   = 100000
	codeRange = 900000
)

var codeSpan = big.NewInt(codeRange)

// NewCode returns a six digit code drawn uniformly from [100000, 999999]
// using crypto/rand.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeLow, 10), nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used for expiry stamping and checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithCodeSource overrides the code generator. Intended for tests.
func WithCodeSource(fn func() (string, error)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newCode = fn
		}
	}
}

// Engine issues and redeems time-bound single-use codes stored on account
// records. All writes go through account.Store.Update so that issuance and
// redemption for the same user are serialized by the store.
type Engine struct {
	store   account.Store
	now     func() time.Time
	newCode func() (string, error)
}

// New returns an Engine backed by store.
func New(store account.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		now:     time.Now,
		newCode: NewCode,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Generate stores a fresh code of the given kind for email, replacing any
// code of that kind that was issued earlier, and returns it for delivery.
func (e *Engine) Generate(ctx context.Context, email string, kind account.Kind, ttl time.Duration) (string, error) {
	return e.GenerateIf(ctx, email, kind, ttl, nil)
}

// GenerateIf is Generate with a guard evaluated against the current record
// inside the same store update. A guard error aborts issuance and is
// returned unchanged.
func (e *Engine) GenerateIf(ctx context.Context, email string, kind account.Kind, ttl time.Duration, guard func(account.Record) error) (string, error) {
	if ttl <= 0 {
		return "", errors.New("challenge ttl must be > 0")
	}

	// Drawn only once the guard passes. Stores that retry the callback draw
	// again and keep the last code.
	var code string
	_, err := e.store.Update(ctx, email, func(rec *account.Record) error {
		if guard != nil {
			if err := guard(*rec); err != nil {
				return err
			}
		}
		var err error
		if code, err = e.newCode(); err != nil {
			return err
		}
		rec.SetChallenge(kind, &account.Challenge{
			Code:            code,
			ExpiresAtMillis: e.now().Add(ttl).UnixMilli(),
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	return code, nil
}

// Check validates supplied against the stored challenge of kind without
// side effects. Failures are reported in the order missing, mismatch,
// expired, so a correct but stale code always yields ErrExpired.
func Check(rec account.Record, kind account.Kind, supplied string, now time.Time) error {
	c := rec.Challenge(kind)
	if c == nil {
		return ErrMissing
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(c.Code)) != 1 {
		return ErrMismatch
	}
	if c.Expired(now.UnixMilli()) {
		return ErrExpired
	}
	return nil
}

// Validate reads the record for email and runs Check against it.
func (e *Engine) Validate(ctx context.Context, email string, kind account.Kind, supplied string) (account.Record, error) {
	rec, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return account.Record{}, err
	}
	if err := Check(rec, kind, supplied, e.now()); err != nil {
		return account.Record{}, err
	}
	return rec, nil
}

// Consume clears the challenge slot of kind. Clearing an empty slot is not
// an error.
func (e *Engine) Consume(ctx context.Context, email string, kind account.Kind) error {
	_, err := e.store.Update(ctx, email, func(rec *account.Record) error {
		rec.SetChallenge(kind, nil)
		return nil
	})
	return err
}

// Redeem validates supplied, applies effect and clears the slot inside a
// single store update. When Check or effect fails nothing is persisted.
// A nil effect redeems the code without any other change.
func (e *Engine) Redeem(ctx context.Context, email string, kind account.Kind, supplied string, effect func(*account.Record) error) (account.Record, error) {
	return e.store.Update(ctx, email, func(rec *account.Record) error {
		if err := Check(*rec, kind, supplied, e.now()); err != nil {
			return err
		}
		if effect != nil {
			if err := effect(rec); err != nil {
				return err
			}
		}
		rec.SetChallenge(kind, nil)
		return nil
	})
}
