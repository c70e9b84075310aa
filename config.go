package credgate

import (
	"fmt"
	"time"
)

// Config defines the engine settings.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Session      SessionConfig
	Password     PasswordConfig
	Verification ChallengeConfig
	Reset        ChallengeConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Security     SecurityConfig
}

/*
====================================
SESSION TOKEN CONFIG
====================================
*/

// SessionConfig controls session token signing and lifetime.
type SessionConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters and the length policy
// applied on registration and reset.
type PasswordConfig struct {
	Memory         uint32 // KiB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig sets the lifetime of one challenge kind.
type ChallengeConfig struct {
	TTL time.Duration
}

/*
====================================
AUDIT / METRICS / SECURITY
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig holds behavior switches with security impact.
type SecurityConfig struct {
	// MaskUnknownUser reports an unknown email on login as
	// ErrCredentialsInvalid instead of ErrUserNotFound.
	MaskUnknownUser bool
}

const (
	defaultSessionTTL      = 24 * time.Hour
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = 15 * time.Minute
	maxSessionLeeway       = 2 * time.Minute
)

// DefaultConfig returns the defaults. Session keys are left empty and must
// be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:           defaultSessionTTL,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
			MaxLength:   1024,
		},
		Verification: ChallengeConfig{TTL: defaultVerificationTTL},
		Reset:        ChallengeConfig{TTL: defaultResetTTL},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.PrivateKey = cloneBytes(cfg.Session.PrivateKey)
	out.Session.PublicKey = cloneBytes(cfg.Session.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks cross-field constraints. Every error wraps ErrInvalidConfig.
// Key material is checked by the token manager during Build.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
	}

	if c.Session.TTL <= 0 {
		return invalid("Session.TTL must be > 0")
	}
	if c.Session.Leeway < 0 || c.Session.Leeway > maxSessionLeeway {
		return invalid("Session.Leeway must be between 0 and %s", maxSessionLeeway)
	}
	switch c.Session.SigningMethod {
	case "hs256", "ed25519":
	default:
		return invalid("Session.SigningMethod %q not supported", c.Session.SigningMethod)
	}

	if c.Password.MinLength < 1 {
		return invalid("Password.MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return invalid("Password.MaxLength must be >= Password.MinLength")
	}

	if c.Verification.TTL <= 0 {
		return invalid("Verification.TTL must be > 0")
	}
	if c.Reset.TTL <= 0 {
		return invalid("Reset.TTL must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("Audit.BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalid("Metrics.EnableLatencyHistograms requires Metrics.Enabled")
	}

	return nil
}
