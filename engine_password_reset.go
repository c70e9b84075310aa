package credgate

import (
	"context"
	"time"

	internalflows "github.com/MrEthical07/credgate/internal/flows"
)

// SendResetCode stores a fresh reset code for email and hands it to the
// Notifier. Any known account qualifies, verified or not. A previously
// issued reset code stops working immediately.
//
// Delivery failures wrap ErrDeliveryFailed and leave the new code stored.
// Sends for one email run one at a time under the SendLocker; the default
// locker only serializes sends within this process.
func (e *Engine) SendResetCode(ctx context.Context, email string) error {
	return internalflows.RunSendResetCode(ctx, email, e.passwordResetFlowDeps())
}

// CheckResetCode reports whether code is currently redeemable without
// spending it.
func (e *Engine) CheckResetCode(ctx context.Context, email, code string) error {
	return internalflows.RunCheckResetCode(ctx, email, code, e.passwordResetFlowDeps())
}

// CompleteReset redeems code and replaces the password hash in one store
// update. newPassword must satisfy the configured length policy.
func (e *Engine) CompleteReset(ctx context.Context, email, code, newPassword string) error {
	return internalflows.RunCompleteReset(ctx, email, code, newPassword, e.passwordResetFlowDeps())
}

func (e *Engine) passwordResetFlowDeps() internalflows.ResetDeps {
	deps := internalflows.ResetDeps{
		Observer: e.observer(),
		Metrics: internalflows.ResetMetrics{
			CodeSent:        int(MetricResetCodeSent),
			DeliveryFailure: int(MetricDeliveryFailure),
			CheckSuccess:    int(MetricResetCheckSuccess),
			CheckFailure:    int(MetricResetCheckFailure),
			ResetSuccess:    int(MetricResetSuccess),
			ResetFailure:    int(MetricResetFailure),
		},
		Events: internalflows.ResetEvents{
			CodeSent: auditEventResetCodeSent,
			Check:    auditEventResetCheck,
			Complete: auditEventResetComplete,
		},
		Errors: internalflows.ResetErrors{
			EngineNotReady: ErrEngineNotReady,
			DeliveryFailed: ErrDeliveryFailed,
			HashFailed:     ErrHashFailed,
		},
	}
	if !e.ready() {
		return deps
	}

	deps.TTL = e.config.Reset.TTL
	deps.LockSend = e.sendLock(ChallengeReset)
	deps.Generate = func(ctx context.Context, email string, ttl time.Duration) (string, error) {
		return e.challenges.Generate(ctx, email, ChallengeReset, ttl)
	}
	deps.Deliver = e.deliver(ChallengeReset)
	deps.Validate = func(ctx context.Context, email, code string) (UserRecord, error) {
		return e.challenges.Validate(ctx, email, ChallengeReset, code)
	}
	deps.Redeem = func(ctx context.Context, email, code string, effect func(*UserRecord) error) (UserRecord, error) {
		return e.challenges.Redeem(ctx, email, ChallengeReset, code, effect)
	}
	deps.CheckPolicy = e.checkPolicy
	deps.HashPassword = e.hasher.Hash
	deps.MapStoreError = e.mapStoreError
	return deps
}
