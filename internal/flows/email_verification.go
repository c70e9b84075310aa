package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/credgate/account"
)

var errAlreadyVerified = errors.New("account already verified")

type VerificationMetrics struct {
	CodeSent        int
	CodeSkipped     int
	DeliveryFailure int
	ConfirmSuccess  int
	ConfirmFailure  int
}

type VerificationEvents struct {
	CodeSent string
	Confirm  string
}

type VerificationErrors struct {
	EngineNotReady error
	DeliveryFailed error
}

type VerificationDeps struct {
	TTL time.Duration

	LockSend      func(ctx context.Context, email string) (unlock func(), err error)
	Generate      func(ctx context.Context, email string, ttl time.Duration, guard func(account.Record) error) (string, error)
	Deliver       func(ctx context.Context, email, code string) error
	Redeem        func(ctx context.Context, email, code string, effect func(*account.Record) error) (account.Record, error)
	MapStoreError func(error) error

	Observer
	Metrics VerificationMetrics
	Events  VerificationEvents
	Errors  VerificationErrors
}

// RunSendVerificationCode issues and delivers a verification code. For an
// account that is already verified it returns nil without issuing anything.
func RunSendVerificationCode(ctx context.Context, email string, deps VerificationDeps) error {
	normalizeVerificationDeps(&deps)
	if deps.Generate == nil || deps.Deliver == nil {
		return deps.Errors.EngineNotReady
	}

	generated, err := sendStep{
		email:   email,
		purpose: account.KindVerify.String(),
		lock:    deps.LockSend,
		generate: func(ctx context.Context) (string, error) {
			return deps.Generate(ctx, email, deps.TTL, func(rec account.Record) error {
				if rec.AccountVerified {
					return errAlreadyVerified
				}
				return nil
			})
		},
		deliver: func(ctx context.Context, code string) error {
			return deps.Deliver(ctx, email, code)
		},
		deliveryFail: deps.Errors.DeliveryFailed,
		logger:       deps.Logger,
	}.run(ctx)

	switch {
	case errors.Is(err, errAlreadyVerified):
		deps.MetricInc(deps.Metrics.CodeSkipped)
		deps.EmitAudit(ctx, deps.Events.CodeSent, true, email, "", nil, func() map[string]string {
			return map[string]string{"skipped": "already_verified"}
		})
		return nil
	case err != nil && !generated:
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.CodeSent, false, email, "", mapped, nil)
		return mapped
	case err != nil:
		deps.MetricInc(deps.Metrics.DeliveryFailure)
		deps.EmitAudit(ctx, deps.Events.CodeSent, false, email, "", err, func() map[string]string {
			return map[string]string{"challenge_stored": "true"}
		})
		return err
	}

	deps.MetricInc(deps.Metrics.CodeSent)
	deps.EmitAudit(ctx, deps.Events.CodeSent, true, email, "", nil, nil)
	return nil
}

// RunConfirmVerification redeems code and marks the account verified in the
// same store update.
func RunConfirmVerification(ctx context.Context, email, code string, deps VerificationDeps) error {
	normalizeVerificationDeps(&deps)
	if deps.Redeem == nil {
		return deps.Errors.EngineNotReady
	}

	rec, err := deps.Redeem(ctx, email, code, func(r *account.Record) error {
		r.AccountVerified = true
		return nil
	})
	if err != nil {
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, email, "", mapped, nil)
		return mapped
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, email, rec.ID, nil, nil)
	return nil
}

func normalizeVerificationDeps(deps *VerificationDeps) {
	deps.Observer.normalize()
	if deps.LockSend == nil {
		deps.LockSend = noLock
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = passthrough
	}
}
