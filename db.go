// db.go
//
// Database helpers for the NumClash duel server.
// Responsibilities:
//   - Opening SQLite with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the schema (idempotent CREATE TABLE IF NOT EXISTS).
//
// The DB holds accounts and finished-match history only; live lobby and
// match state never touches it.

package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// openDB opens (and creates if missing) a SQLite database file.
//
// - Ensures the parent directory exists for relative DSNs (e.g. ./data/app.db).
// - Configures busy timeout and WAL journaling mode.
// - Enforces foreign keys.
func openDB(dsn string) (*sql.DB, error) {
	// Ensure directory exists for ./data/app.db, etc.
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// Open DB with busy timeout and WAL journaling.
	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	// Explicitly enforce foreign keys + WAL.
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// Schema is two tables; inline statements beat a migration directory at
// this size. Both are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		username       TEXT NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		matches_played INTEGER NOT NULL DEFAULT 0,
		wins           INTEGER NOT NULL DEFAULT 0,
		best_streak    INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS matches (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		room_code   TEXT NOT NULL,
		difficulty  TEXT NOT NULL DEFAULT '',
		host_id     TEXT NOT NULL,
		host_name   TEXT NOT NULL,
		guest_id    TEXT NOT NULL,
		guest_name  TEXT NOT NULL,
		rounds      INTEGER NOT NULL,
		winner_id   TEXT NOT NULL DEFAULT '',
		outcome     TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_matches_host ON matches(host_id);`,
	`CREATE INDEX IF NOT EXISTS idx_matches_guest ON matches(guest_id);`,
}

// migrate applies the schema statements in order.
func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
