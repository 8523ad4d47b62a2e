package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// OpenDB opens the SQLite database at path and checks the connection.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// InitializeDatabase opens the database connection and runs migrations
func InitializeDatabase(path string, log logrus.FieldLogger) (*sql.DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.WithField("path", path).Info("database initialized")
	return db, nil
}

// dsn enables WAL and a busy timeout on every pooled connection, so concurrent
// dispatches and audit writes wait for the lock instead of failing.
func dsn(path string) string {
	if strings.Contains(path, "?") || path == ":memory:" {
		return path
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
}
