//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/MrEthical07/credgate/account"
	"github.com/MrEthical07/credgate/store/storetest"
)

func TestPostgresConformance(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("credgate"),
		tcpostgres.WithUsername("credgate"),
		tcpostgres.WithPassword("credgate"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	require.NoError(t, Migrate(migrateCtx, pool))
	// A second run is a no-op.
	require.NoError(t, Migrate(migrateCtx, pool))

	storetest.Run(t, func(t *testing.T) account.Store {
		_, err := pool.Exec(ctx, `TRUNCATE accounts`)
		require.NoError(t, err)
		return New(pool)
	})

	t.Run("LockerExcludes", func(t *testing.T) {
		first := NewLocker(pool)
		second := NewLocker(pool)

		unlock, err := first.Lock(ctx, "reset:a@example.com")
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		_, err = second.Lock(waitCtx, "reset:a@example.com")
		require.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		again, err := second.Lock(ctx, "reset:a@example.com")
		require.NoError(t, err)
		again()
	})
}
