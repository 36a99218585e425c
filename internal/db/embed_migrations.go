package db

import "embed"

// MigrationFS embeds the Postgres migrations applied by internal/db/migrate (cmd/migrate, presencectl migrate).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS

// sqliteSchema is the SQLite schema, applied idempotently by OpenSQLite.
//
//go:embed schema_sqlite.sql
var sqliteSchema string
