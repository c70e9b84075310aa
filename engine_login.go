package credgate

import (
	"context"
	"errors"
	"time"

	internalflows "github.com/MrEthical07/credgate/internal/flows"
)

// Authenticate checks email and password and returns a signed session token
// bound to the email.
//
// Authenticate returns ErrUserNotFound for an unknown email, unless
// Config.Security.MaskUnknownUser is set, and ErrCredentialsInvalid for a
// wrong password. There is no lockout.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (string, error) {
	return internalflows.RunLogin(ctx, email, password, e.loginFlowDeps())
}

// ValidateToken returns the email bound to token. It fails with
// ErrTokenMalformed, ErrTokenSignatureInvalid or ErrTokenExpired and never
// touches the store.
func (e *Engine) ValidateToken(ctx context.Context, token string) (string, error) {
	return internalflows.RunValidateToken(ctx, token, e.validateFlowDeps())
}

func (e *Engine) observer() internalflows.Observer {
	if e == nil {
		return internalflows.Observer{}
	}
	return internalflows.Observer{
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		Observe:   func(id int, d time.Duration) { e.metricObserve(MetricID(id), d) },
		EmitAudit: e.emitAudit,
		Logger:    e.logger,
	}
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	deps := internalflows.LoginDeps{
		Observer: e.observer(),
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:   int(MetricLoginSuccess),
			LoginFailure:   int(MetricLoginFailure),
			PasswordRehash: int(MetricPasswordRehash),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			UserNotFound:       ErrUserNotFound,
			CredentialsInvalid: ErrCredentialsInvalid,
			HashFailed:         ErrHashFailed,
		},
	}
	if !e.ready() {
		return deps
	}

	deps.MaskUnknownUser = e.config.Security.MaskUnknownUser
	deps.FindUser = e.store.FindByEmail
	deps.VerifyPassword = e.hasher.Verify
	deps.IssueToken = e.tokens.Issue
	deps.MapStoreError = e.mapStoreError

	if e.upgrader != nil {
		deps.NeedsRehash = func(hash string) bool {
			upgrade, err := e.upgrader.NeedsUpgrade(hash)
			return err == nil && upgrade
		}
		deps.Rehash = e.rehash
	}
	return deps
}

var errHashChanged = errors.New("password hash changed concurrently")

// rehash replaces oldHash with a fresh hash of plaintext, but only if the
// stored hash is still oldHash.
func (e *Engine) rehash(ctx context.Context, email, oldHash, plaintext string) error {
	newHash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	_, err = e.store.Update(ctx, email, func(rec *UserRecord) error {
		if rec.PasswordHash != oldHash {
			return errHashChanged
		}
		rec.PasswordHash = newHash
		return nil
	})
	return err
}

func (e *Engine) validateFlowDeps() internalflows.ValidateDeps {
	deps := internalflows.ValidateDeps{
		Observer: e.observer(),
		Metrics: internalflows.ValidateMetrics{
			TokenValid:      int(MetricTokenValid),
			TokenInvalid:    int(MetricTokenInvalid),
			ValidateLatency: int(MetricValidateLatency),
		},
		Errors: internalflows.ValidateErrors{
			EngineNotReady: ErrEngineNotReady,
		},
	}
	if !e.ready() {
		return deps
	}

	deps.Now = e.now
	deps.ParseToken = func(token string) (string, error) {
		claims, err := e.tokens.Parse(token)
		if err != nil {
			return "", err
		}
		return claims.Identity(), nil
	}
	return deps
}
