package metricsdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busmetrics.transitwatch.org/internal/appconf"
)

func TestNewClientRejectsFileDBInTestEnv(t *testing.T) {
	config := NewConfig("/tmp/metrics_test.sqlite", appconf.Test, false)

	client, err := NewClient(config)
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "in-memory")
}

func TestNewClientInMemory(t *testing.T) {
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	require.NotNil(t, client)
	defer func() { _ = client.Close() }()

	assert.NotNil(t, client.DB)
}

func TestMigrationCreatesTables(t *testing.T) {
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	tables := []string{
		"routes", "trips", "stops", "stop_times", "shapes", "calendar_dates",
		"vehicle_positions", "route_metrics_daily", "route_otp_breakdown_daily",
		"route_metrics_summary",
	}
	for _, table := range tables {
		var name string
		err := client.DB.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationIsIdempotent(t *testing.T) {
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	// Re-applying the DDL must not fail; every statement uses IF NOT EXISTS.
	require.NoError(t, performDatabaseMigration(context.Background(), client.DB))
}
