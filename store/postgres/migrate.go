package postgres

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations to the database behind pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return oops.Code("MIGRATION_UP_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	return nil
}
