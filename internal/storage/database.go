// Package storage persists notes, cards and import sources in a local sqlite
// database. Writes that must be atomic (sync diffs, note cascade deletes) run
// inside a single transaction; everything else is a per-record write.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrNotFound is returned when a referenced note or card does not exist.
// Check with errors.Is.
var ErrNotFound = errors.New("storage: not found")

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
