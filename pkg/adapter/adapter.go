// Package adapter provides reference database backends for polysql.
//
// A backend loads the same in-memory tables the executor reads, runs a
// query natively and returns the result as an executor.Relation, so the two
// can be compared. Concrete adapters live in pkg/adapters/ subdirectories
// and register themselves in init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/optimizer"
)

// Config describes how to reach a backend. Embedded backends only use
// Path; server backends use the connection fields.
type Config struct {
	Type     string            `koanf:"type"`
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Username string            `koanf:"username"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// Adapter is a database backend that can load executor tables and run
// queries against them.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement and materializes its rows.
	Query(ctx context.Context, sql string) (*executor.Relation, error)

	// LoadTables replaces each named table with the given data. Column
	// types are inferred from the values.
	LoadTables(ctx context.Context, tables executor.Tables) error

	// TableSchema returns the columns of a table as an optimizer table.
	TableSchema(ctx context.Context, table string) (*optimizer.Table, error)

	// Dialect returns the SQL dialect queries must be written in.
	Dialect() *dialect.Dialect
}
