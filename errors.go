package credgate

import (
	"errors"

	"github.com/MrEthical07/credgate/account"
	"github.com/MrEthical07/credgate/challenge"
	"github.com/MrEthical07/credgate/jwt"
)

var (
	// ErrUserNotFound is returned when no account exists for the email.
	ErrUserNotFound = errors.New("user not found")
	// ErrCredentialsInvalid is returned when the password does not match.
	ErrCredentialsInvalid = errors.New("invalid credentials")
	// ErrDuplicateEmail is returned by Register for an email that is already taken.
	ErrDuplicateEmail = account.ErrDuplicateEmail
	// ErrDeliveryFailed wraps a Notifier error. The challenge that failed to
	// deliver stays stored until the next send overwrites it.
	ErrDeliveryFailed = errors.New("challenge delivery failed")

	// ErrChallengeMissing is returned when no code of the requested kind is stored.
	ErrChallengeMissing = challenge.ErrMissing
	// ErrChallengeMismatch is returned when the supplied code is not the stored one.
	ErrChallengeMismatch = challenge.ErrMismatch
	// ErrChallengeExpired is returned when the stored code is past its expiry.
	ErrChallengeExpired = challenge.ErrExpired

	// ErrTokenMalformed is returned when a session token cannot be parsed.
	ErrTokenMalformed = jwt.ErrMalformed
	// ErrTokenSignatureInvalid is returned for tampered tokens or tokens signed by another key.
	ErrTokenSignatureInvalid = jwt.ErrSignatureInvalid
	// ErrTokenExpired is returned once a session token is past its expiry.
	ErrTokenExpired = jwt.ErrExpired

	// ErrEngineNotReady is returned by a zero or partially built Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidConfig is wrapped by every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidRequest is returned for registration input that cannot be stored.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPasswordPolicy is returned for passwords outside the configured length bounds.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrStoreUnavailable wraps credential store failures other than not-found and duplicate.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrHashFailed wraps password hasher failures.
	ErrHashFailed = errors.New("password hash failed")
)
