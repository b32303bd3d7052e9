// Package all registers every bundled dialect. Import it for its side effect:
//
//	import _ "github.com/leapstack-labs/polysql/pkg/dialects/all"
package all

import (
	_ "github.com/leapstack-labs/polysql/pkg/dialects/ansi"       // register ansi
	_ "github.com/leapstack-labs/polysql/pkg/dialects/bigquery"   // register bigquery
	_ "github.com/leapstack-labs/polysql/pkg/dialects/clickhouse" // register clickhouse
	_ "github.com/leapstack-labs/polysql/pkg/dialects/databricks" // register databricks
	_ "github.com/leapstack-labs/polysql/pkg/dialects/duckdb"     // register duckdb
	_ "github.com/leapstack-labs/polysql/pkg/dialects/mysql"      // register mysql
	_ "github.com/leapstack-labs/polysql/pkg/dialects/postgres"   // register postgres
	_ "github.com/leapstack-labs/polysql/pkg/dialects/snowflake"  // register snowflake
	_ "github.com/leapstack-labs/polysql/pkg/dialects/sqlite"     // register sqlite
)
