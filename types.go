package credgate

import (
	"context"
	"time"

	"github.com/MrEthical07/credgate/account"
	internalaudit "github.com/MrEthical07/credgate/internal/audit"
)

// UserRecord is the persisted account state.
type UserRecord = account.Record

// Challenge is a stored one-time code with its absolute expiry.
type Challenge = account.Challenge

// ChallengeKind selects the verification or reset challenge slot.
type ChallengeKind = account.Kind

const (
	// ChallengeVerify is the email verification purpose.
	ChallengeVerify = account.KindVerify
	// ChallengeReset is the password reset purpose.
	ChallengeReset = account.KindReset
)

// CredentialStore persists user records. See account.Store for the
// atomicity contract of Update.
type CredentialStore = account.Store

// PasswordHasher hashes and verifies passwords.
//
// Verify returns (false, nil) for a wrong password and an error only when
// the stored hash cannot be used.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) (bool, error)
}

// Notifier delivers a challenge code out of band. It is called after the
// code has been stored, while the per-user send lock is held. See SendLocker
// for how far that lock reaches.
type Notifier interface {
	SendChallengeCode(ctx context.Context, email, code string, purpose ChallengeKind) error
}

// SendLocker serializes code sends for one key. Lock blocks until the key is
// held or ctx is done.
//
// The default locker is in-process, so it only covers one Engine. Processes
// sharing a store must share a locker as well; store/redis.Locker is one.
type SendLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, email, code string, purpose ChallengeKind) error

// SendChallengeCode calls f.
func (f NotifierFunc) SendChallengeCode(ctx context.Context, email, code string, purpose ChallengeKind) error {
	return f(ctx, email, code, purpose)
}

type hashUpgrader interface {
	NeedsUpgrade(hash string) (bool, error)
}

// RegisterRequest is the input to Engine.Register.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// Profile is the public view of an account.
type Profile struct {
	UserID          string
	Name            string
	Email           string
	AccountVerified bool
	CreatedAt       time.Time
}

func profileFromRecord(rec UserRecord) Profile {
	return Profile{
		UserID:          rec.ID,
		Name:            rec.Name,
		Email:           rec.Email,
		AccountVerified: rec.AccountVerified,
		CreatedAt:       rec.CreatedAt,
	}
}

// AuditEvent is one credential or challenge outcome.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs audit events through slog.
type SlogSink = internalaudit.SlogSink

var (
	// NewChannelSink returns a ChannelSink with the given buffer.
	NewChannelSink = internalaudit.NewChannelSink
	// NewJSONWriterSink returns a JSONWriterSink over w.
	NewJSONWriterSink = internalaudit.NewJSONWriterSink
	// NewSlogSink returns a SlogSink over logger.
	NewSlogSink = internalaudit.NewSlogSink
)
