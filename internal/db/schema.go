package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sqliteSchema is the full SQLite schema.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS item_types (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS locations (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id               INTEGER PRIMARY KEY,
    name             TEXT NOT NULL,
    item_type_id     INTEGER NOT NULL REFERENCES item_types(id) ON DELETE RESTRICT,
    serial_number    TEXT UNIQUE,
    inventory_number TEXT UNIQUE,
    description      TEXT,
    purchase_date    TEXT,
    cost             TEXT,
    is_active        INTEGER NOT NULL DEFAULT 1,
    photo            BLOB,
    photo_mime       TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (name, serial_number)
);

CREATE TABLE IF NOT EXISTS assignments (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    location_id INTEGER NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    assigned_at DATETIME NOT NULL,
    removed_at  DATETIME,
    UNIQUE (item_id, location_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_one_active
    ON assignments(item_id) WHERE removed_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_assignments_location
    ON assignments(location_id, removed_at);

CREATE TABLE IF NOT EXISTS item_associations (
    id             INTEGER PRIMARY KEY,
    parent_item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    child_item_id  INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    UNIQUE (parent_item_id, child_item_id),
    CHECK (parent_item_id <> child_item_id)
);
`

// postgresSchema mirrors sqliteSchema with native Postgres types.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS item_types (
    id   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS locations (
    id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id               BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    name             TEXT NOT NULL,
    item_type_id     BIGINT NOT NULL REFERENCES item_types(id) ON DELETE RESTRICT,
    serial_number    TEXT UNIQUE,
    inventory_number TEXT UNIQUE,
    description      TEXT,
    purchase_date    TEXT,
    cost             NUMERIC(10, 2),
    is_active        BOOLEAN NOT NULL DEFAULT TRUE,
    photo            BYTEA,
    photo_mime       TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (name, serial_number)
);

CREATE TABLE IF NOT EXISTS assignments (
    id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    item_id     BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    location_id BIGINT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    assigned_at TIMESTAMPTZ NOT NULL,
    removed_at  TIMESTAMPTZ,
    UNIQUE (item_id, location_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_one_active
    ON assignments(item_id) WHERE removed_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_assignments_location
    ON assignments(location_id, removed_at);

CREATE TABLE IF NOT EXISTS item_associations (
    id             BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    parent_item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    child_item_id  BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    UNIQUE (parent_item_id, child_item_id),
    CHECK (parent_item_id <> child_item_id)
);
`

// Migrations are applied in order after schema creation. Each must be
// idempotent. Append new migrations at the end.
var sqliteMigrations = []string{
	// Migration 1: speed up type statistics and type deletion checks.
	`CREATE INDEX IF NOT EXISTS idx_items_type ON items(item_type_id)`,
	// Migration 2: child lookups for associations.
	`CREATE INDEX IF NOT EXISTS idx_item_associations_child ON item_associations(child_item_id)`,
}

var postgresMigrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_items_type ON items(item_type_id)`,
	`CREATE INDEX IF NOT EXISTS idx_item_associations_child ON item_associations(child_item_id)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range splitStatements(d.Schema()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Migrate ensures the schema and runs every migration.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	if err := EnsureSchema(ctx, db, d); err != nil {
		return err
	}
	for i, m := range d.Migrations() {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}

// splitStatements splits a schema on semicolons. The schemas contain no
// semicolons inside literals.
func splitStatements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
