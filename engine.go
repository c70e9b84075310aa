package credgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/credgate/account"
	"github.com/MrEthical07/credgate/challenge"
	internalaudit "github.com/MrEthical07/credgate/internal/audit"
	"github.com/MrEthical07/credgate/internal/keylock"
	"github.com/MrEthical07/credgate/jwt"
)

// Engine runs the authentication, verification and reset workflows against
// one CredentialStore.
//
// Engine methods are safe for concurrent use after Build.
type Engine struct {
	config     Config
	store      CredentialStore
	notifier   Notifier
	hasher     PasswordHasher
	upgrader   hashUpgrader
	challenges *challenge.Engine
	tokens     *jwt.Manager
	sendLocker SendLocker
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.notifier != nil && e.hasher != nil &&
		e.challenges != nil && e.tokens != nil && e.sendLocker != nil
}

// sendLock serializes generate+deliver per challenge kind and email.
func (e *Engine) sendLock(kind ChallengeKind) func(context.Context, string) (func(), error) {
	return func(ctx context.Context, email string) (func(), error) {
		return e.sendLocker.Lock(ctx, kind.String()+":"+email)
	}
}

type localSendLocker struct {
	locks keylock.Map
}

func (l *localSendLocker) Lock(_ context.Context, key string) (func(), error) {
	return l.locks.Lock(key), nil
}

// mapStoreError translates store failures into the engine taxonomy.
// Challenge errors, duplicates and context errors pass through unchanged.
func (e *Engine) mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, account.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrChallengeMissing),
		errors.Is(err, ErrChallengeMismatch),
		errors.Is(err, ErrChallengeExpired),
		isContextError(err):
		return err
	default:
		e.logger.Error("credential store failure", slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

// checkPolicy enforces the configured password length bounds, counted in
// runes.
func (e *Engine) checkPolicy(plaintext string) error {
	n := utf8.RuneCountInString(plaintext)
	if n < e.config.Password.MinLength {
		return fmt.Errorf("%w: password shorter than %d characters", ErrPasswordPolicy, e.config.Password.MinLength)
	}
	if n > e.config.Password.MaxLength {
		return fmt.Errorf("%w: password longer than %d characters", ErrPasswordPolicy, e.config.Password.MaxLength)
	}
	return nil
}

func (e *Engine) deliver(kind ChallengeKind) func(ctx context.Context, email, code string) error {
	return func(ctx context.Context, email, code string) error {
		return e.notifier.SendChallengeCode(ctx, email, code, kind)
	}
}
