// Package credgate is a credential and challenge engine: password login with
// stateless signed session tokens, one-time six-digit codes for email
// verification and password reset, and the account registration that feeds
// them.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// credgate is the public surface. It exposes [Engine], [Builder], [Config]
// and the collaborator interfaces [CredentialStore], [PasswordHasher] and
// [Notifier]. Flow orchestration and audit dispatch live under internal/.
// Challenge codes are handled by the challenge package and tokens by the jwt
// package; their sentinel errors are re-exported here as the same values.
//
// # Consistency
//
// Every record mutation goes through CredentialStore.Update, which must be
// an atomic read-modify-write per email. Redeeming a code and applying its
// effect (marking the account verified, replacing the password hash) happen
// inside a single Update, so a code is spent exactly once and never without
// its effect. Sends of the same challenge kind for the same email are
// serialized through a [SendLocker] so a fresh code is delivered before it
// can be replaced. The default locker is in-process; engines in several
// processes sharing one store need a shared locker.
//
// A failed delivery does not roll the stored code back.
package credgate
