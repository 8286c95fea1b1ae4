package migrations

import "embed"

// PostgresFS holds the Postgres schema, one transaction per file.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the ClickHouse schema. Files are split on ';' because
// the native protocol runs one statement per Exec.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
