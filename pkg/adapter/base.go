package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/optimizer"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
	// Placeholder renders the n-th (1-based) bind parameter. Nil means "?".
	Placeholder func(n int) string
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement and reads every row into a relation.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*executor.Relation, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return ScanRelation(rows)
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

func (b *BaseSQLAdapter) placeholder(n int) string {
	if b.Placeholder == nil {
		return "?"
	}
	return b.Placeholder(n)
}

// ScanRelation reads rows into a relation. Driver values are converted to
// executor values; repeated column names get numeric suffixes.
func ScanRelation(rows *sql.Rows) (*executor.Relation, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var data [][]any
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range raw {
			raw[i] = driverValue(v)
		}
		data = append(data, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	rel, err := executor.NewRelation(executor.UniqueNames(columns), data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert result: %w", err)
	}
	return rel, nil
}

// driverValue maps the values database drivers return onto the executor's
// value kinds.
func driverValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint64:
		if x > 1<<63-1 {
			return float64(x)
		}
		return int64(x)
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case interface{ Float64() float64 }:
		return x.Float64()
	case []any:
		out := make([]executor.Value, len(x))
		for i, e := range x {
			out[i] = driverValue(e)
		}
		return out
	case nil, bool, int, int32, int64, uint32, float32, float64, string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses defaultSchema if not specified.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return defaultSchema, table
}

// TableSchemaCommon provides a shared implementation of TableSchema.
// Uses information_schema.columns with the adapter's placeholders.
func (b *BaseSQLAdapter) TableSchemaCommon(ctx context.Context, table, defaultSchema string) (*optimizer.Table, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema, tableName := ParseQualifiedName(table, defaultSchema)

	//nolint:gosec // placeholders are fixed strings
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, b.placeholder(1), b.placeholder(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	t := &optimizer.Table{Name: table}
	for rows.Next() {
		var col optimizer.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		t.Columns = append(t.Columns, &col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return t, nil
}

// LoadTablesCommon recreates every table and inserts its rows inside one
// transaction. Tables are loaded in name order.
func (b *BaseSQLAdapter) LoadTablesCommon(ctx context.Context, tables executor.Tables, d *dialect.Dialect) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range SortedTableNames(tables) {
		rel := tables[name]
		for _, stmt := range []string{DropTableSQL(name, d), CreateTableSQL(name, rel, d)} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create table %s: %w", name, err)
			}
		}
		if len(rel.Rows) == 0 {
			continue
		}

		insert := b.insertSQL(name, rel, d)
		for i, row := range rel.Rows {
			if _, err := tx.ExecContext(ctx, insert, BindValues(row)...); err != nil {
				return fmt.Errorf("failed to insert row %d into %s: %w", i, name, err)
			}
		}
		if b.Logger != nil {
			b.Logger.Debug("loaded table", "table", name, "rows", len(rel.Rows))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table data: %w", err)
	}
	return nil
}

func (b *BaseSQLAdapter) insertSQL(name string, rel *executor.Relation, d *dialect.Dialect) string {
	cols := make([]string, len(rel.Columns))
	params := make([]string, len(rel.Columns))
	for i, c := range rel.Columns {
		cols[i] = d.QuoteIdentifier(c)
		params[i] = b.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdentifier(name), strings.Join(cols, ", "), strings.Join(params, ", "))
}

// SortedTableNames returns the table names in order.
func SortedTableNames(tables executor.Tables) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DropTableSQL drops a table if it exists.
func DropTableSQL(name string, d *dialect.Dialect) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdentifier(name)
}

// CreateTableSQL declares a table whose column types are inferred from
// the relation's values and spelled in dialect d.
func CreateTableSQL(name string, rel *executor.Relation, d *dialect.Dialect) string {
	defs := make([]string, len(rel.Columns))
	for i, c := range rel.Columns {
		defs[i] = d.QuoteIdentifier(c) + " " + d.TypeName(InferType(rel, i))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.QuoteIdentifier(name), strings.Join(defs, ", "))
}

// InferType returns the canonical type that holds every value of column
// i: BIGINT, DOUBLE, BOOLEAN or TEXT. Lists and records are stored as
// JSON text; an all-NULL column is TEXT.
func InferType(rel *executor.Relation, i int) string {
	typ := ""
	for _, row := range rel.Rows {
		var t string
		switch row[i].(type) {
		case nil:
			continue
		case int64:
			t = "BIGINT"
		case float64:
			t = "DOUBLE"
		case bool:
			t = "BOOLEAN"
		default:
			return "TEXT"
		}
		switch {
		case typ == "" || typ == t:
			typ = t
		case (typ == "BIGINT" && t == "DOUBLE") || (typ == "DOUBLE" && t == "BIGINT"):
			typ = "DOUBLE"
		default:
			return "TEXT"
		}
	}
	if typ == "" {
		return "TEXT"
	}
	return typ
}

// BindValues converts a row to driver arguments. Lists and records are
// passed as JSON text.
func BindValues(row []executor.Value) []any {
	args := make([]any, len(row))
	for i, v := range row {
		switch v.(type) {
		case []executor.Value, *executor.Record:
			data, err := json.Marshal(v)
			if err != nil {
				args[i] = executor.Text(v)
				continue
			}
			args[i] = string(data)
		default:
			args[i] = v
		}
	}
	return args
}
