package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	// file source for migrations.
	_ "github.com/golang-migrate/migrate/v4/source/file"
	// postgres driver for database/sql.
	_ "github.com/lib/pq"
)

const (
	maxOpenConns = 50
	maxIdleConns = 10
	connMaxLife  = 15 * time.Minute

	migrationsDatabase = "tafl"
)

// NewPostgres opens a pooled postgres connection and checks it with a ping.
func NewPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLife)

	return db, nil
}

// Migrate applies all pending migrations from source, e.g. "file://migrations".
func Migrate(db *sql.DB, source string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("can't create migration driver: %w", err)
	}

	migration, err := migrate.NewWithDatabaseInstance(source, migrationsDatabase, driver)
	if err != nil {
		return fmt.Errorf("can't load migrations: %w", err)
	}

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("can't apply migrations: %w", err)
	}

	return nil
}
