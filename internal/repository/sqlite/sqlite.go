// Package sqlite implements the repository interfaces on SQLite via the
// pure-Go modernc.org/sqlite driver (no CGo, works wherever Go does).
//
// The DB type wraps a sql.DB pool; the per-entity store types (Users,
// Settings, Accounts, Posts) are views over that pool, one per repository
// interface. Use ":memory:" as the path for throwaway test databases.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. Repository methods live on the store
// views returned by Users, Settings, Accounts, and Posts.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, applies pragmas, and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time; a single pooled connection
	// serializes writes instead of surfacing SQLITE_BUSY. It also makes
	// ":memory:" behave as one database rather than one per connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads during a write — the dispatcher reads
	// the due window while handlers serve listings.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite; the schema relies on
	// them for the user → settings/account/posts cascade.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe
// to run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// keywords and schedule are stored as JSON text. The schedule keys
	// are validated at the settings service boundary, so the matcher can
	// trust what it reads back.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			user_id              TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			keywords             TEXT NOT NULL DEFAULT '[]',
			style_instructions   TEXT NOT NULL DEFAULT '',
			caption_instructions TEXT NOT NULL DEFAULT '',
			schedule             TEXT NOT NULL DEFAULT '{}',
			updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating settings table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS instagram_accounts (
			user_id        TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			access_token   TEXT NOT NULL,
			business_id    TEXT NOT NULL DEFAULT '',
			page_id        TEXT NOT NULL DEFAULT '',
			username       TEXT NOT NULL DEFAULT '',
			is_active      INTEGER NOT NULL DEFAULT 1,
			connected_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_refreshed DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating instagram_accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS generated_posts (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			keywords           TEXT NOT NULL DEFAULT '[]',
			info               TEXT NOT NULL DEFAULT '',
			image_url          TEXT NOT NULL DEFAULT '',
			image_alt          TEXT NOT NULL DEFAULT '',
			image_source       TEXT NOT NULL DEFAULT '',
			image_photographer TEXT NOT NULL DEFAULT '',
			caption            TEXT NOT NULL DEFAULT '',
			target_time        DATETIME NOT NULL,
			status             TEXT NOT NULL DEFAULT 'GENERATED',
			instagram_post_id  TEXT NOT NULL DEFAULT '',
			error_message      TEXT NOT NULL DEFAULT '',
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			posted_at          DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_posts_user_created ON generated_posts(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_status_target ON generated_posts(status, target_time);
	`)
	if err != nil {
		return fmt.Errorf("creating generated_posts table: %w", err)
	}

	return nil
}
