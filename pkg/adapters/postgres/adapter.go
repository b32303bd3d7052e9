package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/polysql/pkg/adapter"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	pgdialect "github.com/leapstack-labs/polysql/pkg/dialects/postgres"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/optimizer"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:      logger,
			Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		},
	}
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return pgdialect.Postgres
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string. Options other
// than sslmode are appended in key order.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		dsn += fmt.Sprintf(" %s=%s", k, cfg.Options[k])
	}

	return dsn
}

func (a *Adapter) schema() string {
	if a.Cfg.Schema != "" {
		return a.Cfg.Schema
	}
	return "public"
}

// TableSchema returns the columns of a table in the configured schema
// unless the name is qualified.
func (a *Adapter) TableSchema(ctx context.Context, table string) (*optimizer.Table, error) {
	return a.TableSchemaCommon(ctx, table, a.schema())
}

// LoadTables recreates each table and bulk loads its rows with COPY.
func (a *Adapter) LoadTables(ctx context.Context, tables executor.Tables) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()

		tx, err := pgxConn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		d := a.Dialect()
		for _, name := range adapter.SortedTableNames(tables) {
			rel := tables[name]
			for _, stmt := range []string{adapter.DropTableSQL(name, d), adapter.CreateTableSQL(name, rel, d)} {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("failed to create table %s: %w", name, err)
				}
			}

			n, err := tx.CopyFrom(ctx, pgx.Identifier{name}, rel.Columns, pgx.CopyFromRows(copyRows(rel)))
			if err != nil {
				return fmt.Errorf("failed to copy rows into %s: %w", name, err)
			}
			a.Logger.Debug("loaded table", "table", name, "rows", n)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit table data: %w", err)
		}
		return nil
	})
}

// copyRows converts relation rows to COPY values. Integers in DOUBLE
// columns are widened so the binary encoder accepts them.
func copyRows(rel *executor.Relation) [][]any {
	widen := make([]bool, len(rel.Columns))
	for i := range rel.Columns {
		widen[i] = adapter.InferType(rel, i) == "DOUBLE"
	}

	out := make([][]any, len(rel.Rows))
	for i, row := range rel.Rows {
		vals := adapter.BindValues(row)
		for j, v := range vals {
			if n, ok := v.(int64); ok && widen[j] {
				vals[j] = float64(n)
			}
		}
		out[i] = vals
	}
	return out
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
