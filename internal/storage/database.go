// Package storage persists per-document chunk indexes in SQLite files so a
// document only has to be embedded once.
package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested persisted index does not exist.
var ErrNotFound = errors.New("not found")

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			pos INTEGER PRIMARY KEY,
			content TEXT NOT NULL,
			page INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			file_index INTEGER NOT NULL,
			bbox_x REAL NOT NULL,
			bbox_y REAL NOT NULL,
			bbox_w REAL NOT NULL,
			bbox_h REAL NOT NULL,
			relative_position REAL NOT NULL,
			vector BLOB NOT NULL
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
