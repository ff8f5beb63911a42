package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema holds the DDL for every table. Each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		slug       TEXT NOT NULL UNIQUE,
		active     INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'USER',
		tenant_id     TEXT,
		active        INTEGER NOT NULL DEFAULT 1,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL,
		last_login_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_tenant_id ON users(tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,

	`CREATE TABLE IF NOT EXISTS audit_events (
		id         TEXT PRIMARY KEY,
		type       TEXT NOT NULL,
		user_id    TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		tenant_id  TEXT NOT NULL DEFAULT '',
		ip         TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		success    INTEGER NOT NULL DEFAULT 0,
		message    TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_events_tenant_id ON audit_events(tenant_id)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		tenant_id         TEXT NOT NULL DEFAULT '',
		ip                TEXT NOT NULL DEFAULT '',
		user_agent        TEXT NOT NULL DEFAULT '',
		created_at        INTEGER NOT NULL,
		last_refreshed_at INTEGER NOT NULL,
		expires_at        INTEGER NOT NULL,
		refresh_count     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
}

// alterStatements add columns to tables created by older releases. SQLite
// has no ADD COLUMN IF NOT EXISTS, so each one is checked first.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string
}{
	{
		table:    "audit_events",
		column:   "user_agent",
		alterSQL: "ALTER TABLE audit_events ADD COLUMN user_agent TEXT NOT NULL DEFAULT ''",
	},
	{
		table:    "sessions",
		column:   "refresh_count",
		alterSQL: "ALTER TABLE sessions ADD COLUMN refresh_count INTEGER NOT NULL DEFAULT 0",
	},
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}
	return nil
}

func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
