package sqlite

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"

	"github.com/MrEthical07/credgate/store/sqlite/migrations"
)

// ApplyMigrations brings the schema up to date using the migrations compiled
// into the binary. It is a no-op when nothing is pending.
func (s *Store) ApplyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}

	instance, err := migrate.NewWithInstance("iofs", source, "", driver)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	return nil
}
