// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package database provides the PostgreSQL connection shared by the backup
// subsystem.
//
// The business schema (schools, contacts, interactions, partnerships, MOUs)
// is owned by the CRM's CRUD layer and treated opaquely here: this package
// only enumerates base tables, answers existence checks, and drops tables
// when a restore asks for it. Bulk data movement happens out-of-band through
// the pg_dump/psql subprocesses.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/tzustu63/ogacrm-sub001/internal/config"
)

// Database wraps the shared *sql.DB connection pool.
type Database struct {
	db   *sql.DB
	name string
}

// New opens a connection pool against the configured PostgreSQL instance
// and verifies it with a ping.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*Database, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &Database{db: db, name: cfg.Name}, nil
}

// Name returns the connected database's name.
func (d *Database) Name() string {
	return d.name
}

// Ping verifies the connection is still alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// ListTables returns the names of all base tables in the public schema,
// sorted alphabetically.
func (d *Database) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tables: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table names: %w", err)
	}

	return tables, nil
}

// DropTables drops the given tables, one statement per table, outside any
// transaction. CASCADE removes dependent constraints so restore order does
// not matter.
func (d *Database) DropTables(ctx context.Context, tables []string) error {
	for _, table := range tables {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", QuoteIdentifier(table))
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

// QuoteIdentifier quotes a PostgreSQL identifier, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
