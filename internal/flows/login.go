package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/credgate/account"
)

type LoginMetrics struct {
	LoginSuccess   int
	LoginFailure   int
	PasswordRehash int
}

type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

type LoginErrors struct {
	EngineNotReady     error
	UserNotFound       error
	CredentialsInvalid error
	HashFailed         error
}

type LoginDeps struct {
	MaskUnknownUser bool

	FindUser       func(context.Context, string) (account.Record, error)
	VerifyPassword func(plaintext, hash string) (bool, error)
	IssueToken     func(identity string) (string, error)
	NeedsRehash    func(hash string) bool
	Rehash         func(ctx context.Context, email, oldHash, plaintext string) error
	MapStoreError  func(error) error

	Observer
	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin checks email and password and returns a session token.
//
// Unknown users fail with Errors.UserNotFound unless MaskUnknownUser is set,
// in which case they fail exactly like a wrong password.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (string, error) {
	normalizeLoginDeps(&deps)
	if deps.FindUser == nil || deps.VerifyPassword == nil || deps.IssueToken == nil {
		return "", deps.Errors.EngineNotReady
	}

	fail := func(userID string, err error, reason string) (string, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, email, userID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return "", err
	}

	rec, err := deps.FindUser(ctx, email)
	if err != nil {
		mapped := deps.MapStoreError(err)
		if !errors.Is(mapped, deps.Errors.UserNotFound) {
			return fail("", mapped, "store_error")
		}
		if deps.MaskUnknownUser {
			return fail("", deps.Errors.CredentialsInvalid, "unknown_user")
		}
		return fail("", mapped, "unknown_user")
	}

	ok, err := deps.VerifyPassword(password, rec.PasswordHash)
	if err != nil {
		deps.Logger.ErrorContext(ctx, "stored password hash unusable", slog.String("user_id", rec.ID), slog.Any("error", err))
		return fail(rec.ID, fmt.Errorf("%w: %w", deps.Errors.HashFailed, err), "hash_unusable")
	}
	if !ok {
		return fail(rec.ID, deps.Errors.CredentialsInvalid, "password_mismatch")
	}

	token, err := deps.IssueToken(rec.Email)
	if err != nil {
		return fail(rec.ID, err, "token_issue_failed")
	}

	if deps.NeedsRehash != nil && deps.Rehash != nil && deps.NeedsRehash(rec.PasswordHash) {
		if err := deps.Rehash(ctx, rec.Email, rec.PasswordHash, password); err != nil {
			deps.Logger.WarnContext(ctx, "password rehash after login failed", slog.String("user_id", rec.ID), slog.Any("error", err))
		} else {
			deps.MetricInc(deps.Metrics.PasswordRehash)
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, rec.Email, rec.ID, nil, nil)
	return token, nil
}

func normalizeLoginDeps(deps *LoginDeps) {
	deps.Observer.normalize()
	if deps.MapStoreError == nil {
		deps.MapStoreError = passthrough
	}
}
