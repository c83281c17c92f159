package storage

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (or creates) the SQLite database at path and applies the schema.
// PRE: path is a writable file path or ":memory:"
// POST: Returns a ready database or an error
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// The driver serializes writers anyway; one connection keeps :memory: coherent.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB initializes the SQLite schema.
// PRE: db is a valid SQLite connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		enrollment_status TEXT NOT NULL DEFAULT 'unpaid' CHECK (enrollment_status IN ('unpaid', 'paid')),
		program_access TEXT NOT NULL DEFAULT 'locked' CHECK (program_access IN ('locked', 'unlocked')),
		payment_amount REAL NOT NULL DEFAULT 97,
		payment_method TEXT NOT NULL DEFAULT '',
		payment_confirmed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_enrollments_created_at ON enrollments (created_at);

	CREATE TABLE IF NOT EXISTS roadmap_leads (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		interest_reason TEXT NOT NULL,
		discovery_source TEXT NOT NULL,
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
