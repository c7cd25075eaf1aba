package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS admins (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    phone         TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS members (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    phone         TEXT NOT NULL,
    username      TEXT UNIQUE,
    password_hash TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS books (
    id          INTEGER PRIMARY KEY,
    title       TEXT NOT NULL,
    author      TEXT NOT NULL,
    publisher   TEXT NOT NULL,
    isbn        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    cover       BLOB,
    cover_mime  TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS loans (
    id              INTEGER PRIMARY KEY,
    book_id         INTEGER NOT NULL REFERENCES books(id),
    member_id       INTEGER NOT NULL REFERENCES members(id),
    borrow_date     DATE NOT NULL,
    return_due_date DATE NOT NULL,
    returned_date   DATE,
    status          TEXT NOT NULL CHECK (status IN ('REQUESTED', 'APPROVED', 'RETURN_REQUESTED', 'RETURNED')),
    created_at      DATETIME NOT NULL,
    CHECK ((status = 'RETURNED') = (returned_date IS NOT NULL))
);

-- At most one open loan per book.
CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_open_book
    ON loans(book_id) WHERE returned_date IS NULL;

CREATE INDEX IF NOT EXISTS idx_loans_member ON loans(member_id);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);

CREATE TABLE IF NOT EXISTS notifications (
    id             INTEGER PRIMARY KEY,
    recipient_type TEXT NOT NULL CHECK (recipient_type IN ('ADMIN', 'USER')),
    recipient_id   INTEGER NOT NULL,
    type           TEXT NOT NULL,
    title          TEXT NOT NULL,
    message        TEXT NOT NULL,
    is_read        BOOLEAN NOT NULL DEFAULT 0,
    created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient
    ON notifications(recipient_type, recipient_id, is_read);

CREATE TABLE IF NOT EXISTS notices (
    id         INTEGER PRIMARY KEY,
    title      TEXT NOT NULL,
    content    TEXT NOT NULL,
    author     TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: status filters on the ledger are ordered by creation time.
	`CREATE INDEX IF NOT EXISTS idx_loans_status_created
	     ON loans(status, created_at)`,

	// Migration 2: sign-in audit trail.
	`CREATE TABLE IF NOT EXISTS login_history (
	     id         INTEGER PRIMARY KEY,
	     user_type  TEXT NOT NULL CHECK (user_type IN ('ADMIN', 'USER')),
	     user_id    INTEGER NOT NULL,
	     username   TEXT NOT NULL,
	     ip_address TEXT NOT NULL DEFAULT '',
	     login_time DATETIME NOT NULL
	 )`,
	`CREATE INDEX IF NOT EXISTS idx_login_history_username
	     ON login_history(username, login_time)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Migrate ensures the schema and applies pending migrations.
func Migrate(db *sqlx.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
