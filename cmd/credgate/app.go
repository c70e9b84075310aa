package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	credgate "github.com/MrEthical07/credgate"
	"github.com/MrEthical07/credgate/internal/logging"
	"github.com/MrEthical07/credgate/metrics/export/prometheus"
	"github.com/MrEthical07/credgate/notify"
	"github.com/MrEthical07/credgate/notify/events"
	"github.com/MrEthical07/credgate/store/memory"
	"github.com/MrEthical07/credgate/store/postgres"
	storeredis "github.com/MrEthical07/credgate/store/redis"
	"github.com/MrEthical07/credgate/store/sqlite"
)

// app owns everything one command opens. close releases it in reverse
// order of acquisition.
type app struct {
	cfg     fileConfig
	logger  *slog.Logger
	redis   redis.UniversalClient
	locker  credgate.SendLocker
	engine  *credgate.Engine
	closers []func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}
	return &app{
		cfg: cfg,
		logger: logging.New(logging.Config{
			Service: "credgate",
			Version: version,
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Writer:  cmd.ErrOrStderr(),
		}),
	}, nil
}

// withEngine builds an engine from the command's configuration, runs fn and
// tears everything down, writing the metrics textfile when configured.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *credgate.Engine) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := a.buildEngine(ctx); err != nil {
		return errors.Join(err, a.close())
	}

	runErr := fn(ctx, a.engine)
	return errors.Join(runErr, a.writeMetrics(), a.close())
}

func (a *app) buildEngine(ctx context.Context) error {
	if a.cfg.Session.Secret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session secret is required (--session-secret or session.secret)")
	}
	store, err := a.openStore(ctx, a.cfg.Store.AutoMigrate)
	if err != nil {
		return err
	}
	notifier, err := a.openNotifier()
	if err != nil {
		return err
	}

	b := credgate.New().
		WithConfig(a.cfg.engineConfig()).
		WithStore(store).
		WithNotifier(notifier).
		WithLogger(a.logger).
		WithAuditSink(credgate.NewSlogSink(a.logger))
	if a.locker != nil {
		b.WithSendLocker(a.locker)
	}
	engine, err := b.Build()
	if err != nil {
		return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	a.engine = engine
	a.closers = append(a.closers, func() error {
		engine.Close()
		return nil
	})
	return nil
}

func (a *app) openStore(ctx context.Context, migrate bool) (credgate.CredentialStore, error) {
	switch a.cfg.Store.Driver {
	case "memory":
		return memory.New(), nil

	case "sqlite":
		s, err := sqlite.Open(a.cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		if migrate {
			if err := s.ApplyMigrations(); err != nil {
				return nil, err
			}
		}
		return s, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, a.cfg.Store.DSN)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		if migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return nil, err
			}
		}
		// Processes sharing a database share the send lock too.
		a.locker = postgres.NewLocker(pool)
		return postgres.New(pool), nil

	case "redis":
		a.locker = storeredis.NewLocker(a.redisClient(), storeredis.LockerConfig{Prefix: a.cfg.Redis.Prefix})
		return storeredis.New(a.redisClient(), storeredis.Config{Prefix: a.cfg.Redis.Prefix}), nil
	}
	return nil, oops.Code("CONFIG_INVALID").Errorf("unknown store driver %q", a.cfg.Store.Driver)
}

func (a *app) openNotifier() (credgate.Notifier, error) {
	if a.cfg.Notifier.Kind != "redisstream" {
		return notify.NewLogNotifier(a.logger), nil
	}

	// The publisher closes its client, so it gets its own.
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redis.NewUniversalClient(&redis.UniversalOptions{
				Addrs: []string{a.cfg.Redis.Addr},
			}),
		},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return nil, oops.Code("NOTIFIER_INIT_FAILED").Wrap(err)
	}
	p := events.NewPublisher(publisher, a.cfg.Notifier.Topic)
	a.closers = append(a.closers, p.Close)
	return p, nil
}

// redisClient returns the store's client, dialing it on first use.
func (a *app) redisClient() redis.UniversalClient {
	if a.redis == nil {
		a.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{a.cfg.Redis.Addr},
		})
		a.closers = append(a.closers, a.redis.Close)
	}
	return a.redis
}

func (a *app) writeMetrics() error {
	if a.cfg.Metrics.Textfile == "" || a.engine == nil {
		return nil
	}
	if err := prometheus.WriteTextfile(a.cfg.Metrics.Textfile, a.engine); err != nil {
		return oops.Code("METRICS_WRITE_FAILED").With("path", a.cfg.Metrics.Textfile).Wrap(err)
	}
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
