package flows

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/MrEthical07/credgate/account"
)

type AccountMetrics struct {
	AccountCreated   int
	AccountDuplicate int
}

type AccountEvents struct {
	AccountCreated string
}

type AccountErrors struct {
	EngineNotReady error
	InvalidRequest error
	DuplicateEmail error
	HashFailed     error
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type AccountDeps struct {
	Exists        func(context.Context, string) (bool, error)
	Create        func(context.Context, account.Record) (account.Record, error)
	FindUser      func(context.Context, string) (account.Record, error)
	CheckPolicy   func(string) error
	HashPassword  func(string) (string, error)
	NewID         func() string
	MapStoreError func(error) error

	Observer
	Metrics AccountMetrics
	Events  AccountEvents
	Errors  AccountErrors
}

// RunRegister creates an unverified account. An email that is already
// registered fails with Errors.DuplicateEmail, whether the duplicate is seen
// by the existence check or by the store's own uniqueness guarantee.
func RunRegister(ctx context.Context, in RegisterInput, deps AccountDeps) (account.Record, error) {
	normalizeAccountDeps(&deps)
	if deps.Exists == nil || deps.Create == nil || deps.HashPassword == nil || deps.NewID == nil {
		return account.Record{}, deps.Errors.EngineNotReady
	}

	fail := func(err error, reason string) (account.Record, error) {
		deps.EmitAudit(ctx, deps.Events.AccountCreated, false, in.Email, "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return account.Record{}, err
	}
	duplicate := func() (account.Record, error) {
		deps.MetricInc(deps.Metrics.AccountDuplicate)
		return fail(deps.Errors.DuplicateEmail, "duplicate_email")
	}

	if strings.TrimSpace(in.Name) == "" {
		return fail(fmt.Errorf("%w: name required", deps.Errors.InvalidRequest), "invalid_request")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return fail(fmt.Errorf("%w: invalid email", deps.Errors.InvalidRequest), "invalid_request")
	}
	if err := deps.CheckPolicy(in.Password); err != nil {
		return fail(err, "password_policy")
	}

	exists, err := deps.Exists(ctx, in.Email)
	if err != nil {
		return fail(deps.MapStoreError(err), "store_error")
	}
	if exists {
		return duplicate()
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", deps.Errors.HashFailed, err), "hash_failed")
	}

	rec, err := deps.Create(ctx, account.Record{
		ID:           deps.NewID(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
	})
	if err != nil {
		mapped := deps.MapStoreError(err)
		if errors.Is(mapped, deps.Errors.DuplicateEmail) {
			return duplicate()
		}
		return fail(mapped, "store_error")
	}

	deps.MetricInc(deps.Metrics.AccountCreated)
	deps.EmitAudit(ctx, deps.Events.AccountCreated, true, rec.Email, rec.ID, nil, nil)
	return rec, nil
}

// RunProfile loads the account for email.
func RunProfile(ctx context.Context, email string, deps AccountDeps) (account.Record, error) {
	normalizeAccountDeps(&deps)
	if deps.FindUser == nil {
		return account.Record{}, deps.Errors.EngineNotReady
	}
	rec, err := deps.FindUser(ctx, email)
	if err != nil {
		return account.Record{}, deps.MapStoreError(err)
	}
	return rec, nil
}

func normalizeAccountDeps(deps *AccountDeps) {
	deps.Observer.normalize()
	if deps.CheckPolicy == nil {
		deps.CheckPolicy = func(string) error { return nil }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = passthrough
	}
}
