package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	// The schema is applied inline because importing the migrations package
	// from this package's tests would form an import cycle. Keep in sync
	// with migrations/clickhouse/001_rollup_snapshots.sql.
	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rollup_snapshots (
			snapshot_id      String,
			generated_at     Int64,
			dimension        LowCardinality(String),
			group_key        String,
			completed_orders UInt64,
			canceled_orders  UInt64,
			revenue          Float64,
			cost             Float64,
			profit           Float64,
			margin_pct       Float64,
			crossdock_cost   Float64,
			crossdock_pct    Float64,
			tonu_revenue     Float64,
			tonu_cost        Float64
		)
		ENGINE = MergeTree()
		ORDER BY (snapshot_id, dimension, group_key)
	`)
	require.NoError(t, err)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}
