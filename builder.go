package credgate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/credgate/challenge"
	internalaudit "github.com/MrEthical07/credgate/internal/audit"
	"github.com/MrEthical07/credgate/internal/logging"
	"github.com/MrEthical07/credgate/jwt"
	"github.com/MrEthical07/credgate/password"
	"github.com/google/uuid"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config

	store     CredentialStore
	notifier  Notifier
	hasher    PasswordHasher
	logger    *slog.Logger
	auditSink AuditSink
	locker    SendLocker

	now        func() time.Time
	codeSource func() (string, error)
	newID      func() string

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the credential store. Required.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithNotifier sets the challenge code delivery channel. Required.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithHasher overrides the Argon2id hasher built from Config.Password.
func (b *Builder) WithHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithLogger sets the engine logger. Without it the engine logs nothing.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination and enables the dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithSendLocker replaces the in-process send lock. Use a shared locker when
// several processes serve the same store.
func (b *Builder) WithSendLocker(l SendLocker) *Builder {
	b.locker = l
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the token validation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock replaces time.Now for challenge expiry and token lifetimes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithCodeSource replaces the random six-digit generator.
func (b *Builder) WithCodeSource(fn func() (string, error)) *Builder {
	b.codeSource = fn
	return b
}

// WithIDGenerator replaces the UUID generator used for new accounts.
func (b *Builder) WithIDGenerator(fn func() string) *Builder {
	b.newID = fn
	return b
}

// Build validates the configuration and returns a ready Engine.
//
// Build fails with ErrInvalidConfig for bad settings or missing
// collaborators, and with the token manager's error for unusable keys.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, fmt.Errorf("%w: credential store required", ErrInvalidConfig)
	}
	if b.notifier == nil {
		return nil, fmt.Errorf("%w: notifier required", ErrInvalidConfig)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = logging.Discard()
	}
	newID := b.newID
	if newID == nil {
		newID = uuid.NewString
	}

	locker := b.locker
	if locker == nil {
		locker = &localSendLocker{}
	}

	engine := &Engine{
		config:     cfg,
		store:      b.store,
		notifier:   b.notifier,
		sendLocker: locker,
		logger:     logger,
		now:        now,
		newID:      newID,
	}

	// -------- PASSWORD HASHER --------
	if b.hasher != nil {
		engine.hasher = b.hasher
	} else {
		ph, err := password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		engine.hasher = ph
	}
	if up, ok := engine.hasher.(hashUpgrader); ok && cfg.Password.UpgradeOnLogin {
		engine.upgrader = up
	}

	// -------- SESSION TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Session.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Session.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Session.PrivateKey),
		PublicKey:     cloneBytes(cfg.Session.PublicKey),
		Issuer:        cfg.Session.Issuer,
		Audience:      cfg.Session.Audience,
		Leeway:        cfg.Session.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	engine.tokens = jm

	// -------- CHALLENGES --------
	opts := []challenge.Option{challenge.WithClock(now)}
	if b.codeSource != nil {
		opts = append(opts, challenge.WithCodeSource(b.codeSource))
	}
	engine.challenges = challenge.New(b.store, opts...)

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
