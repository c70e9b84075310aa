package credgate

import "errors"

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventVerificationCodeSent = "verification_code_sent"
	auditEventVerificationConfirm  = "verification_confirm"
	auditEventResetCodeSent        = "reset_code_sent"
	auditEventResetCheck           = "reset_check"
	auditEventResetComplete        = "reset_complete"
	auditEventAccountCreation      = "account_creation"
)

// AuditErrorCode is the stable error classification written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrChallengeMissing   AuditErrorCode = "challenge_missing"
	auditErrChallengeMismatch  AuditErrorCode = "challenge_mismatch"
	auditErrChallengeExpired   AuditErrorCode = "challenge_expired"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInvalidRequest     AuditErrorCode = "invalid_request"
	auditErrHashFailed         AuditErrorCode = "hash_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrCanceled           AuditErrorCode = "canceled"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrCredentialsInvalid):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrChallengeMissing):
		return auditErrChallengeMissing
	case errors.Is(err, ErrChallengeMismatch):
		return auditErrChallengeMismatch
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidRequest):
		return auditErrInvalidRequest
	case errors.Is(err, ErrHashFailed):
		return auditErrHashFailed
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case isContextError(err):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}
