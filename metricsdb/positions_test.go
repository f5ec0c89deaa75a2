package metricsdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busmetrics.transitwatch.org/internal/appconf"
	"busmetrics.transitwatch.org/internal/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestInsertAndListPositions(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	dayStart := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	samples := []models.PositionSample{
		{
			VehicleID:  "V100",
			RouteID:    "C51",
			TripIDHint: "T1",
			Lat:        38.9,
			Lon:        -77.03,
			SpeedMPH:   models.Float64Ptr(22.5),
			ObservedAt: dayStart.Add(8 * time.Hour),
		},
		{
			VehicleID:         "V200",
			RouteID:           "C51",
			Lat:               38.91,
			Lon:               -77.03,
			ReportedDeviation: models.Float64Ptr(1.5),
			ObservedAt:        dayStart.Add(9 * time.Hour),
		},
	}
	require.NoError(t, client.InsertPositionSamples(ctx, samples))

	got, err := client.ListPositionsForRouteDay(ctx, "C51", dayStart)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "V100", got[0].VehicleID)
	assert.Equal(t, "T1", got[0].TripIDHint)
	require.NotNil(t, got[0].SpeedMPH)
	assert.InDelta(t, 22.5, *got[0].SpeedMPH, 1e-9)
	assert.Nil(t, got[0].ReportedDeviation)
	assert.Equal(t, dayStart.Add(8*time.Hour), got[0].ObservedAt)

	assert.Equal(t, "V200", got[1].VehicleID)
	assert.Equal(t, "", got[1].TripIDHint)
	require.NotNil(t, got[1].ReportedDeviation)
	assert.InDelta(t, 1.5, *got[1].ReportedDeviation, 1e-9)
}

func TestListPositionsDayBoundaries(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	dayStart := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	samples := []models.PositionSample{
		{VehicleID: "V1", RouteID: "C51", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart.Add(-time.Second)},
		{VehicleID: "V2", RouteID: "C51", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart},
		{VehicleID: "V3", RouteID: "C51", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart.Add(24*time.Hour - time.Second)},
		{VehicleID: "V4", RouteID: "C51", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart.Add(24 * time.Hour)},
	}
	require.NoError(t, client.InsertPositionSamples(ctx, samples))

	got, err := client.ListPositionsForRouteDay(ctx, "C51", dayStart)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// [dayStart, dayStart+24h): the midnight sample is in, the next
	// midnight belongs to the following day.
	assert.Equal(t, "V2", got[0].VehicleID)
	assert.Equal(t, "V3", got[1].VehicleID)
}

func TestListPositionsFiltersByRoute(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	dayStart := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	samples := []models.PositionSample{
		{VehicleID: "V1", RouteID: "C51", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart.Add(time.Hour)},
		{VehicleID: "V2", RouteID: "D12", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart.Add(time.Hour)},
	}
	require.NoError(t, client.InsertPositionSamples(ctx, samples))

	got, err := client.ListPositionsForRouteDay(ctx, "C51", dayStart)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "V1", got[0].VehicleID)
}

func TestListRouteIDsWithPositions(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	dayStart := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	samples := []models.PositionSample{
		{VehicleID: "V1", RouteID: "D12", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart.Add(time.Hour)},
		{VehicleID: "V2", RouteID: "C51", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart.Add(2 * time.Hour)},
		{VehicleID: "V3", RouteID: "C51", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart.Add(3 * time.Hour)},
		{VehicleID: "V4", RouteID: "A99", Lat: 38.9, Lon: -77.03, ObservedAt: dayStart.Add(48 * time.Hour)},
	}
	require.NoError(t, client.InsertPositionSamples(ctx, samples))

	ids, err := client.ListRouteIDsWithPositions(ctx, dayStart, dayStart.Add(24*time.Hour))
	require.NoError(t, err)
	// Distinct routes in range, ordered.
	assert.Equal(t, []string{"C51", "D12"}, ids)
}
