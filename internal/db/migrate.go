package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending embedded migration for the database
// dialect. Already-applied versions are skipped.
func (d *Database) RunMigrations(ctx context.Context) error {
	d.logger.Info("Running DB migrations", zap.String("dialect", d.driver))

	var dialect goose.Dialect
	switch d.driver {
	case DriverPostgres:
		dialect = goose.DialectPostgres
	case DriverSQLite:
		dialect = goose.DialectSQLite3
	default:
		return fmt.Errorf("no migrations for driver %q", d.driver)
	}

	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	sub, err := fs.Sub(migrationsFS, "migrations/"+d.driver)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, sqlDB, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		d.logger.Info("Migration applied",
			zap.String("name", r.Source.Path),
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}
