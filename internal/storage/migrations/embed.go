package migrations

import "embed"

// PostgresFS embeds the shipment event schema migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the rollup snapshot schema migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
