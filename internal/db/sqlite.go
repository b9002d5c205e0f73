// Package db keeps a local SQLite history of what the chat session saw:
// messages, lookup answers and friends list snapshots.
package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/energizer-project/bnetchat/internal/util"
)

// Database is a single-writer SQLite handle. Writes are serialized; reads
// go straight to the pool.
type Database struct {
	mu   sync.Mutex
	conn *sql.DB
	path string
}

// NewDatabase opens the history file at path, creating its directory.
func NewDatabase(path string) (*Database, error) {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("sqlite pragma rejected")
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history ping failed: %w", err)
	}

	log.Debug().Str("path", path).Msg("history database opened")
	return &Database{conn: conn, path: path}, nil
}

// Path returns the file the database was opened from.
func (d *Database) Path() string { return d.path }

// Close closes the database.
func (d *Database) Close() error {
	return d.conn.Close()
}

// Migrate applies the steps past the stored schema version, each in its
// own transaction, and records the new version. It returns the version the
// database ends at.
func (d *Database) Migrate(steps []string) (int, error) {
	var version int
	if err := d.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(steps); i++ {
		err := d.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(steps[i]); err != nil {
				return err
			}
			// PRAGMA does not take bind parameters.
			_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1))
			return err
		})
		if err != nil {
			return version, fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		version = i + 1
	}
	return version, nil
}

// Exec runs a write statement.
func (d *Database) Exec(query string, args ...any) (sql.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.Exec(query, args...)
}

// Query runs a read statement.
func (d *Database) Query(query string, args ...any) (*sql.Rows, error) {
	return d.conn.Query(query, args...)
}

// Transaction runs fn in a transaction, rolling back if it fails.
func (d *Database) Transaction(fn func(tx *sql.Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
