package all

import (
	"testing"

	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryDialectRegistered(t *testing.T) {
	assert.Equal(t, []string{
		"ansi", "bigquery", "clickhouse", "databricks", "duckdb",
		"mysql", "postgres", "snowflake", "sqlite",
	}, dialect.List())

	d, ok := dialect.Default()
	require.True(t, ok)
	assert.Equal(t, "ansi", d.Name)
}

func TestDialectFeatures(t *testing.T) {
	tests := []struct {
		name      string
		qualify   bool
		ilike     bool
		cast      bool
		concat    bool
		lists     dialect.ListStyle
		nulls     dialect.NullOrdering
		intDiv    bool
		safeDiv   bool
		quote     string
		normalize dialect.NormalizationStrategy
	}{
		{"ansi", true, true, true, true, dialect.ListArrayKeyword, dialect.NullsAreSmall, false, false, `"`, dialect.NormLowercase},
		{"postgres", false, true, true, true, dialect.ListArrayKeyword, dialect.NullsAreLarge, true, false, `"`, dialect.NormLowercase},
		{"mysql", false, false, false, false, dialect.ListFunction, dialect.NullsAreSmall, false, true, "`", dialect.NormCaseSensitive},
		{"duckdb", true, true, true, true, dialect.ListBracket, dialect.NullsAreLast, false, false, `"`, dialect.NormCaseInsensitive},
		{"snowflake", true, true, true, true, dialect.ListBracket, dialect.NullsAreLarge, false, false, `"`, dialect.NormUppercase},
		{"bigquery", true, false, false, true, dialect.ListBracket, dialect.NullsAreSmall, false, false, "`", dialect.NormCaseInsensitive},
		{"sqlite", false, false, false, true, dialect.ListFunction, dialect.NullsAreSmall, true, true, `"`, dialect.NormCaseInsensitive},
		{"clickhouse", true, true, true, true, dialect.ListBracket, dialect.NullsAreLast, false, false, `"`, dialect.NormCaseSensitive},
		{"databricks", true, true, true, true, dialect.ListFunction, dialect.NullsAreSmall, false, true, "`", dialect.NormCaseInsensitive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := dialect.Resolve(tt.name)
			require.NoError(t, err)

			_, hasQualify := d.LookupKeyword("QUALIFY")
			_, hasIlike := d.LookupKeyword("ILIKE")
			assert.Equal(t, tt.qualify, hasQualify, "qualify")
			assert.Equal(t, tt.qualify, d.IsClauseToken(dialect.TokenQualify), "qualify clause")
			assert.Equal(t, tt.ilike, hasIlike, "ilike")
			_, hasCast := d.Symbols()["::"]
			assert.Equal(t, tt.cast, hasCast, "cast operator")
			assert.Equal(t, tt.concat, d.ConcatOperator, "concat")
			assert.Equal(t, tt.lists, d.Lists, "lists")
			assert.Equal(t, tt.nulls, d.NullOrdering, "null ordering")
			assert.Equal(t, tt.intDiv, d.IntegerDivision, "integer division")
			assert.Equal(t, tt.safeDiv, d.SafeDivision, "safe division")
			assert.Equal(t, tt.quote, d.Identifiers.Quote, "quote")
			assert.Equal(t, tt.normalize, d.Identifiers.Normalization, "normalization")
		})
	}
}

func TestTypeMappings(t *testing.T) {
	tests := []struct {
		dialect   string
		spelling  string
		canonical string
		rendered  string
	}{
		{"bigquery", "STRING", "TEXT", "STRING"},
		{"bigquery", "INT64", "BIGINT", "INT64"},
		{"bigquery", "FLOAT64", "DOUBLE", "FLOAT64"},
		{"postgres", "FLOAT8", "DOUBLE", "DOUBLE PRECISION"},
		{"postgres", "BYTEA", "BLOB", "BYTEA"},
		{"clickhouse", "String", "TEXT", "String"},
		{"clickhouse", "Int8", "TINYINT", "Int8"},
		{"clickhouse", "DateTime", "TIMESTAMP", "DateTime"},
		{"snowflake", "NUMBER", "DECIMAL", "NUMBER"},
		{"databricks", "STRING", "TEXT", "STRING"},
		{"duckdb", "VARCHAR", "VARCHAR", "VARCHAR"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.spelling, func(t *testing.T) {
			d, ok := dialect.Get(tt.dialect)
			require.True(t, ok)
			canonical := d.CanonicalType(tt.spelling)
			assert.Equal(t, tt.canonical, canonical)
			assert.Equal(t, tt.rendered, d.TypeName(canonical))
		})
	}
}

func TestFunctionMappings(t *testing.T) {
	tests := []struct {
		dialect   string
		spelling  string
		canonical string
		rendered  string
	}{
		{"sqlite", "SUBSTR", "SUBSTRING", "SUBSTRING"},
		{"sqlite", "IIF", "IF", "IIF"},
		{"snowflake", "IFF", "IF", "IFF"},
		{"snowflake", "UUID_STRING", "UUID", "UUID_STRING"},
		{"postgres", "gen_random_uuid", "UUID", "GEN_RANDOM_UUID"},
		{"bigquery", "GENERATE_UUID", "UUID", "GENERATE_UUID"},
		{"mysql", "CHAR_LENGTH", "LENGTH", "CHAR_LENGTH"},
		{"clickhouse", "groupArray", "ARRAY_AGG", "groupArray"},
		{"duckdb", "ifnull", "COALESCE", "COALESCE"},
		{"databricks", "NVL", "COALESCE", "COALESCE"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.spelling, func(t *testing.T) {
			d, ok := dialect.Get(tt.dialect)
			require.True(t, ok)
			canonical := d.CanonicalFunction(tt.spelling)
			assert.Equal(t, tt.canonical, canonical)
			assert.Equal(t, tt.rendered, d.FunctionName(canonical))
		})
	}
}

func TestReservedWordsPerDialect(t *testing.T) {
	pg, _ := dialect.Get("postgres")
	duck, _ := dialect.Get("duckdb")
	ch, _ := dialect.Get("clickhouse")

	assert.True(t, pg.IsReservedWord("user"))
	assert.False(t, duck.IsReservedWord("user"))
	assert.True(t, duck.IsReservedWord("qualify"))
	assert.True(t, ch.IsReservedWord("PREWHERE"))
	assert.True(t, ch.IsReservedWord("select"), "standard words are reserved everywhere")
}
