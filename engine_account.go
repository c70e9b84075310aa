package credgate

import (
	"context"

	internalflows "github.com/MrEthical07/credgate/internal/flows"
)

// Register creates an unverified account and returns its profile.
//
// Register fails with ErrInvalidRequest for an empty name or a malformed
// email, ErrPasswordPolicy for a password outside the length bounds and
// ErrDuplicateEmail when the email is taken.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (Profile, error) {
	rec, err := internalflows.RunRegister(ctx, internalflows.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, e.accountFlowDeps())
	if err != nil {
		return Profile{}, err
	}
	return profileFromRecord(rec), nil
}

// Profile returns the public view of the account for email.
func (e *Engine) Profile(ctx context.Context, email string) (Profile, error) {
	rec, err := internalflows.RunProfile(ctx, email, e.accountFlowDeps())
	if err != nil {
		return Profile{}, err
	}
	return profileFromRecord(rec), nil
}

func (e *Engine) accountFlowDeps() internalflows.AccountDeps {
	deps := internalflows.AccountDeps{
		Observer: e.observer(),
		Metrics: internalflows.AccountMetrics{
			AccountCreated:   int(MetricAccountCreated),
			AccountDuplicate: int(MetricAccountDuplicate),
		},
		Events: internalflows.AccountEvents{
			AccountCreated: auditEventAccountCreation,
		},
		Errors: internalflows.AccountErrors{
			EngineNotReady: ErrEngineNotReady,
			InvalidRequest: ErrInvalidRequest,
			DuplicateEmail: ErrDuplicateEmail,
			HashFailed:     ErrHashFailed,
		},
	}
	if !e.ready() {
		return deps
	}

	deps.Exists = e.store.ExistsByEmail
	deps.Create = e.store.Create
	deps.FindUser = e.store.FindByEmail
	deps.CheckPolicy = e.checkPolicy
	deps.HashPassword = e.hasher.Hash
	deps.NewID = e.newID
	deps.MapStoreError = e.mapStoreError
	return deps
}
