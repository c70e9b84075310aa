package credgate

import "time"

// SecurityReport summarizes the security-relevant settings of a built Engine.
type SecurityReport struct {
	SigningAlgorithm string
	SessionTTL       time.Duration
	VerificationTTL  time.Duration
	ResetTTL         time.Duration
	Argon2           PasswordConfigReport
	CustomHasher     bool
	UpgradeOnLogin   bool
	MaskUnknownUser  bool
	AuditEnabled     bool
	MetricsEnabled   bool
	Issuer           string
	Audience         string
}

// PasswordConfigReport lists the Argon2id parameters for new hashes.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	_, builtin := e.hasher.(hashUpgrader)

	return SecurityReport{
		SigningAlgorithm: e.config.Session.SigningMethod,
		SessionTTL:       e.config.Session.TTL,
		VerificationTTL:  e.config.Verification.TTL,
		ResetTTL:         e.config.Reset.TTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
			MinLength:   e.config.Password.MinLength,
			MaxLength:   e.config.Password.MaxLength,
		},
		CustomHasher:    !builtin,
		UpgradeOnLogin:  e.upgrader != nil,
		MaskUnknownUser: e.config.Security.MaskUnknownUser,
		AuditEnabled:    e.audit != nil,
		MetricsEnabled:  e.metrics.Enabled(),
		Issuer:          e.config.Session.Issuer,
		Audience:        e.config.Session.Audience,
	}
}
