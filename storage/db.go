package storage

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

// DB is the PostgreSQL connection for the pool ledger. It implements
// services.Store (see postgres.go).
type DB struct {
	*sqlx.DB
	log *logrus.Entry
}

// NewDB connects to PostgreSQL and applies pending migrations.
func NewDB(dataSourceName string, log *logrus.Logger) (*DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	entry := log.WithField("component", "storage")
	entry.Info("postgres connection established")

	if err := runMigrations(db.DB, entry); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{DB: db, log: entry}, nil
}

func runMigrations(db *sql.DB, log *logrus.Entry) error {
	migrations := &migrate.FileMigrationSource{
		Dir: "./storage/migrations",
	}

	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if n > 0 {
		log.WithField("applied", n).Info("database migrations applied")
	} else {
		log.Info("database schema up to date")
	}
	return nil
}
