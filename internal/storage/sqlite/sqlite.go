// Package sqlite implements storage.Repository on top of SQLite.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jodli/geizhalsbot/internal/models"
	"github.com/jodli/geizhalsbot/internal/storage"
	"github.com/jodli/geizhalsbot/logger"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite backed repository
type Store struct {
	db *sql.DB
}

var _ storage.Repository = (*Store)(nil)

// tables names the per-variant tables and their key column
type tables struct {
	items       string
	idColumn    string
	subscribers string
	prices      string
}

func tablesFor(variant models.Variant) (tables, error) {
	switch variant {
	case models.Wishlist:
		return tables{"wishlists", "wishlist_id", "wishlist_subscribers", "wishlist_prices"}, nil
	case models.Product:
		return tables{"products", "product_id", "product_subscribers", "product_prices"}, nil
	}
	return tables{}, fmt.Errorf("unknown variant %q", variant)
}

// Open opens the database at path and applies all migrations. Use
// ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorage(path, "failed to open database", err)
	}

	// SQLite allows one writer, a single connection keeps writes ordered
	// and keeps in-memory databases alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.NewStorage(path, "failed to ping database", err)
	}

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, apperrors.NewStorage(path, "failed to configure database", err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, apperrors.NewStorage(path, "failed to run migrations", err)
	}

	logger.ForStorage().Info().Str("path", path).Msg("Database ready")
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	defer source.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// m.Close would close db as well, so only the source is released.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func storageErr(variant models.Variant, id int64, message string, err error) error {
	return apperrors.NewStorage(models.ItemKey(variant, id), message, err)
}
