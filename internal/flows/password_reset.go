package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/credgate/account"
)

type ResetMetrics struct {
	CodeSent        int
	DeliveryFailure int
	CheckSuccess    int
	CheckFailure    int
	ResetSuccess    int
	ResetFailure    int
}

type ResetEvents struct {
	CodeSent string
	Check    string
	Complete string
}

type ResetErrors struct {
	EngineNotReady error
	DeliveryFailed error
	HashFailed     error
}

type ResetDeps struct {
	TTL time.Duration

	LockSend      func(ctx context.Context, email string) (unlock func(), err error)
	Generate      func(ctx context.Context, email string, ttl time.Duration) (string, error)
	Deliver       func(ctx context.Context, email, code string) error
	Validate      func(ctx context.Context, email, code string) (account.Record, error)
	Redeem        func(ctx context.Context, email, code string, effect func(*account.Record) error) (account.Record, error)
	CheckPolicy   func(string) error
	HashPassword  func(string) (string, error)
	MapStoreError func(error) error

	Observer
	Metrics ResetMetrics
	Events  ResetEvents
	Errors  ResetErrors
}

// RunSendResetCode issues and delivers a reset code for any existing
// account, verified or not.
func RunSendResetCode(ctx context.Context, email string, deps ResetDeps) error {
	normalizeResetDeps(&deps)
	if deps.Generate == nil || deps.Deliver == nil {
		return deps.Errors.EngineNotReady
	}

	generated, err := sendStep{
		email:   email,
		purpose: account.KindReset.String(),
		lock:    deps.LockSend,
		generate: func(ctx context.Context) (string, error) {
			return deps.Generate(ctx, email, deps.TTL)
		},
		deliver: func(ctx context.Context, code string) error {
			return deps.Deliver(ctx, email, code)
		},
		deliveryFail: deps.Errors.DeliveryFailed,
		logger:       deps.Logger,
	}.run(ctx)

	switch {
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

// RunCheckResetCode validates code without consuming it.
func RunCheckResetCode(ctx context.Context, email, code string, deps ResetDeps) error {
	normalizeResetDeps(&deps)
	if deps.Validate == nil {
		return deps.Errors.EngineNotReady
	}

	rec, err := deps.Validate(ctx, email, code)
	if err != nil {
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.CheckFailure)
		deps.EmitAudit(ctx, deps.Events.Check, false, email, "", mapped, nil)
		return mapped
	}

	deps.MetricInc(deps.Metrics.CheckSuccess)
	deps.EmitAudit(ctx, deps.Events.Check, true, email, rec.ID, nil, nil)
	return nil
}

// RunCompleteReset re-validates code, stores the hash of newPassword and
// consumes the code in one store update. The hash is computed before the
// update so the record is never held across the hashing cost.
func RunCompleteReset(ctx context.Context, email, code, newPassword string, deps ResetDeps) error {
	normalizeResetDeps(&deps)
	if deps.Redeem == nil || deps.HashPassword == nil {
		return deps.Errors.EngineNotReady
	}

	fail := func(err error, reason string) error {
		deps.MetricInc(deps.Metrics.ResetFailure)
		deps.EmitAudit(ctx, deps.Events.Complete, false, email, "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	if err := deps.CheckPolicy(newPassword); err != nil {
		return fail(err, "password_policy")
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", deps.Errors.HashFailed, err), "hash_failed")
	}

	rec, err := deps.Redeem(ctx, email, code, func(r *account.Record) error {
		r.PasswordHash = hash
		return nil
	})
	if err != nil {
		return fail(deps.MapStoreError(err), "challenge_rejected")
	}

	deps.MetricInc(deps.Metrics.ResetSuccess)
	deps.EmitAudit(ctx, deps.Events.Complete, true, email, rec.ID, nil, nil)
	return nil
}

func normalizeResetDeps(deps *ResetDeps) {
	deps.Observer.normalize()
	if deps.LockSend == nil {
		deps.LockSend = noLock
	}
	if deps.CheckPolicy == nil {
		deps.CheckPolicy = func(string) error { return nil }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = passthrough
	}
}
