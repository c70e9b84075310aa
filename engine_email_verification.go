package credgate

import (
	"context"
	"time"

	internalflows "github.com/MrEthical07/credgate/internal/flows"
)

// SendVerificationCode stores a fresh verification code for email and hands
// it to the Notifier.
//
// An already verified account is a no-op: nothing is generated and nil is
// returned. When delivery fails the error wraps ErrDeliveryFailed and the
// stored code remains valid until a later send overwrites it. Serialization
// across processes needs a shared SendLocker.
func (e *Engine) SendVerificationCode(ctx context.Context, email string) error {
	return internalflows.RunSendVerificationCode(ctx, email, e.verificationFlowDeps())
}

// ConfirmVerification redeems code and marks the account verified in one
// store update. It returns ErrChallengeMissing, ErrChallengeMismatch or
// ErrChallengeExpired when the code is not accepted.
func (e *Engine) ConfirmVerification(ctx context.Context, email, code string) error {
	return internalflows.RunConfirmVerification(ctx, email, code, e.verificationFlowDeps())
}

func (e *Engine) verificationFlowDeps() internalflows.VerificationDeps {
	deps := internalflows.VerificationDeps{
		Observer: e.observer(),
		Metrics: internalflows.VerificationMetrics{
			CodeSent:        int(MetricVerificationCodeSent),
			CodeSkipped:     int(MetricVerificationCodeSkipped),
			DeliveryFailure: int(MetricDeliveryFailure),
			ConfirmSuccess:  int(MetricVerificationSuccess),
			ConfirmFailure:  int(MetricVerificationFailure),
		},
		Events: internalflows.VerificationEvents{
			CodeSent: auditEventVerificationCodeSent,
			Confirm:  auditEventVerificationConfirm,
		},
		Errors: internalflows.VerificationErrors{
			EngineNotReady: ErrEngineNotReady,
			DeliveryFailed: ErrDeliveryFailed,
		},
	}
	if !e.ready() {
		return deps
	}

	deps.TTL = e.config.Verification.TTL
	deps.LockSend = e.sendLock(ChallengeVerify)
	deps.Generate = func(ctx context.Context, email string, ttl time.Duration, guard func(UserRecord) error) (string, error) {
		return e.challenges.GenerateIf(ctx, email, ChallengeVerify, ttl, guard)
	}
	deps.Deliver = e.deliver(ChallengeVerify)
	deps.Redeem = func(ctx context.Context, email, code string, effect func(*UserRecord) error) (UserRecord, error) {
		return e.challenges.Redeem(ctx, email, ChallengeVerify, code, effect)
	}
	deps.MapStoreError = e.mapStoreError
	return deps
}
