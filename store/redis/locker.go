package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// ErrLockHeld is returned when a send lock stays taken for longer than the
// lock TTL.
var ErrLockHeld = errors.New("send lock held")

// releaseScript deletes the lock only while it still carries our token, so
// a holder whose TTL ran out cannot release the next holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockerConfig controls lock naming and timing.
type LockerConfig struct {
	Prefix string
	// TTL bounds how long a crashed holder can keep the lock and how long
	// Lock waits before giving up.
	TTL          time.Duration
	PollInterval time.Duration
}

// Locker is a send lock shared by every process using the same Redis. It
// satisfies credgate.SendLocker.
type Locker struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewLocker returns a Locker. Zero config fields take the defaults: prefix
// "cg", 30s TTL, 10ms poll interval.
func NewLocker(client redis.UniversalClient, cfg LockerConfig) *Locker {
	if cfg.Prefix == "" {
		cfg.Prefix = "cg"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	return &Locker{
		redis:  client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		poll:   cfg.PollInterval,
	}
}

func (l *Locker) key(key string) string {
	return l.prefix + ":lock:" + key
}

// Lock takes key with SET NX PX, polling while another holder has it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.key(key)
	token := ulid.Make().String()

	backoff := retry.WithMaxDuration(l.ttl, retry.NewConstant(l.poll))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.redis.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(ErrLockHeld)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLockHeld) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.redis, []string{k}, token).Err()
	}, nil
}
