package account

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by a Store when no record exists for an email.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned by Store.Create when the email is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Kind selects one of the per-user challenge slots.
type Kind uint8

const (
	// KindVerify is the email verification slot.
	KindVerify Kind = iota + 1
	// KindReset is the password reset slot.
	KindReset
)

// String returns the wire name of the kind ("verify" or "reset").
func (k Kind) String() string {
	switch k {
	case KindVerify:
		return "verify"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "verify":
		return KindVerify, nil
	case "reset":
		return KindReset, nil
	default:
		return 0, errors.New("unknown challenge kind: " + s)
	}
}

// Challenge is a stored one-time code and its absolute expiry in Unix
// milliseconds.
type Challenge struct {
	Code            string `json:"code"`
	ExpiresAtMillis int64  `json:"expires_at_millis"`
}

// Expired reports whether nowMillis is strictly past the expiry.
func (c Challenge) Expired(nowMillis int64) bool {
	return nowMillis > c.ExpiresAtMillis
}

// Record is the persisted user state.
type Record struct {
	ID              string
	Email           string
	Name            string
	PasswordHash    string
	AccountVerified bool
	ResetChallenge  *Challenge
	VerifyChallenge *Challenge
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Challenge returns the slot for kind, or nil when it is empty.
func (r *Record) Challenge(kind Kind) *Challenge {
	switch kind {
	case KindVerify:
		return r.VerifyChallenge
	case KindReset:
		return r.ResetChallenge
	default:
		return nil
	}
}

// SetChallenge replaces the slot for kind. A nil c clears it.
func (r *Record) SetChallenge(kind Kind, c *Challenge) {
	if c != nil {
		cp := *c
		c = &cp
	}
	switch kind {
	case KindVerify:
		r.VerifyChallenge = c
	case KindReset:
		r.ResetChallenge = c
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	if r.ResetChallenge != nil {
		c := *r.ResetChallenge
		out.ResetChallenge = &c
	}
	if r.VerifyChallenge != nil {
		c := *r.VerifyChallenge
		out.VerifyChallenge = &c
	}
	return out
}

// Store persists user records keyed by email.
//
// Update is the only mutation path the engine uses after registration. It
// must run fn against the current record and persist the result atomically
// with respect to every other Update or Save for the same email. If fn
// returns an error nothing is written and that error is returned unchanged.
//
// Save upserts by email. When a record already exists its ID and CreatedAt
// are kept, and Save returns the record as stored.
type Store interface {
	FindByEmail(ctx context.Context, email string) (Record, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, rec Record) (Record, error)
	Save(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, email string, fn func(*Record) error) (Record, error)
}
