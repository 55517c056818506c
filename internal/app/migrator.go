package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrator is a thin wrapper over goose bound to the pgx pool.
type Migrator struct {
	db             *sql.DB
	migrationsPath string
}

func NewMigrator(pool *pgxpool.Pool, migrationsPath string) (*Migrator, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}

	// goose works with *sql.DB, so open one from the pool.
	db := stdlib.OpenDBFromPool(pool)

	return &Migrator{
		db:             db,
		migrationsPath: migrationsPath,
	}, nil
}

// Run applies all pending migrations.
func (mg *Migrator) Run(ctx context.Context) error {
	if err := goose.UpContext(ctx, mg.db, mg.migrationsPath); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the migrator's sql.DB; the pool itself stays open.
func (mg *Migrator) Close() error {
	if mg.db != nil {
		return mg.db.Close()
	}
	return nil
}
