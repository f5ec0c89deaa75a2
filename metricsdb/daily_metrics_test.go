package metricsdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busmetrics.transitwatch.org/internal/models"
)

func sampleMetric(day string) models.DailyMetric {
	return models.DailyMetric{
		RouteID:              "C51",
		Day:                  day,
		OTPPct:               models.Float64Ptr(75.5),
		EarlyPct:             models.Float64Ptr(10.25),
		LatePct:              models.Float64Ptr(14.25),
		AvgHeadwayMinutes:    models.Float64Ptr(12.5),
		MedianHeadwayMinutes: models.Float64Ptr(12.0),
		HeadwayStdDevMinutes: models.Float64Ptr(3.1),
		HeadwayCV:            models.Float64Ptr(0.248),
		AvgSpeedMPH:          models.Float64Ptr(17.8),
		MedianSpeedMPH:       models.Float64Ptr(16.3),
		MatchedSamples:       940,
		TotalSamples:         1000,
		UniqueVehicles:       12,
		ArrivalEvents:        210,
	}
}

func sampleSummary() models.RollingSummary {
	return models.RollingSummary{
		RouteID:           "C51",
		DaysAnalyzed:      7,
		DayStart:          "2025-05-28",
		DayEnd:            "2025-06-03",
		OTPPct:            models.Float64Ptr(74.1),
		AvgHeadwayMinutes: models.Float64Ptr(12.9),
		TotalArrivals:     1450,
		UniqueVehicles:    84,
	}
}

// persistDay writes a metric with a fixed precomputed summary, ignoring the
// in-transaction window.
func persistDay(t *testing.T, client *Client, metric models.DailyMetric, summary models.RollingSummary) {
	t.Helper()
	err := client.PersistRouteDay(context.Background(), metric, nil, "2025-05-28", metric.Day,
		func([]models.DailyMetric) models.RollingSummary { return summary })
	require.NoError(t, err)
}

func TestPersistRouteDayRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	metric := sampleMetric("2025-06-03")
	persistDay(t, client, metric, sampleSummary())

	got, err := client.GetDailyMetric(ctx, "C51", "2025-06-03")
	require.NoError(t, err)
	assert.Equal(t, metric, got)

	summary, err := client.GetRollingSummary(ctx, "C51")
	require.NoError(t, err)
	assert.Equal(t, sampleSummary(), summary)
}

func TestPersistRouteDayNullMetrics(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// A day with too little data persists counts but null metrics.
	metric := models.DailyMetric{
		RouteID:      "C51",
		Day:          "2025-06-03",
		TotalSamples: 60,
	}
	summary := models.RollingSummary{
		RouteID: "C51", DaysAnalyzed: 7, DayStart: "2025-05-28", DayEnd: "2025-06-03",
	}
	persistDay(t, client, metric, summary)

	got, err := client.GetDailyMetric(ctx, "C51", "2025-06-03")
	require.NoError(t, err)
	assert.Nil(t, got.OTPPct)
	assert.Nil(t, got.AvgHeadwayMinutes)
	assert.Nil(t, got.HeadwayCV)
	assert.Nil(t, got.AvgSpeedMPH)
	assert.Equal(t, int64(60), got.TotalSamples)
}

func TestPersistRouteDayReplaces(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first := sampleMetric("2025-06-03")
	persistDay(t, client, first, sampleSummary())

	second := sampleMetric("2025-06-03")
	second.OTPPct = models.Float64Ptr(80.0)
	persistDay(t, client, second, sampleSummary())

	got, err := client.GetDailyMetric(ctx, "C51", "2025-06-03")
	require.NoError(t, err)
	require.NotNil(t, got.OTPPct)
	assert.InDelta(t, 80.0, *got.OTPPct, 1e-9)

	// Replace semantics: still exactly one row for the key.
	var n int
	require.NoError(t, client.DB.QueryRow(
		`SELECT COUNT(*) FROM route_metrics_daily WHERE route_id = 'C51' AND day = '2025-06-03'`,
	).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestHasDailyMetric(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	exists, err := client.HasDailyMetric(ctx, "C51", "2025-06-03")
	require.NoError(t, err)
	assert.False(t, exists)

	persistDay(t, client, sampleMetric("2025-06-03"), sampleSummary())

	exists, err = client.HasDailyMetric(ctx, "C51", "2025-06-03")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.HasDailyMetric(ctx, "C51", "2025-06-04")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetDailyMetricMissing(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetDailyMetric(context.Background(), "C51", "2025-06-03")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListDailyMetricsWindow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for _, day := range []string{"2025-05-30", "2025-06-01", "2025-06-03", "2025-06-05"} {
		persistDay(t, client, sampleMetric(day), sampleSummary())
	}

	window, err := client.ListDailyMetricsWindow(ctx, "C51", "2025-05-31", "2025-06-03")
	require.NoError(t, err)
	require.Len(t, window, 2)
	// Inclusive bounds, ordered by day.
	assert.Equal(t, "2025-06-01", window[0].Day)
	assert.Equal(t, "2025-06-03", window[1].Day)
}

func TestGetRollingSummaryMissing(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetRollingSummary(context.Background(), "C51")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRollingSummarySingleRowPerRoute(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	persistDay(t, client, sampleMetric("2025-06-02"), sampleSummary())

	updated := sampleSummary()
	updated.DayEnd = "2025-06-04"
	updated.TotalArrivals = 1500
	persistDay(t, client, sampleMetric("2025-06-04"), updated)

	var n int
	require.NoError(t, client.DB.QueryRow(
		`SELECT COUNT(*) FROM route_metrics_summary WHERE route_id = 'C51'`,
	).Scan(&n))
	assert.Equal(t, 1, n)

	got, err := client.GetRollingSummary(ctx, "C51")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-04", got.DayEnd)
	assert.Equal(t, int64(1500), got.TotalArrivals)
}

func TestPersistRouteDayWindowSeesEveryCommittedDay(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	persistDay(t, client, sampleMetric("2025-06-02"), sampleSummary())

	// The window handed to the summarizer is read inside the persistence
	// transaction, so it includes both the previously committed day and the
	// day being written right now.
	var seen []string
	err := client.PersistRouteDay(ctx, sampleMetric("2025-06-03"), nil, "2025-05-28", "2025-06-03",
		func(window []models.DailyMetric) models.RollingSummary {
			for _, m := range window {
				seen = append(seen, m.Day)
			}
			return sampleSummary()
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-02", "2025-06-03"}, seen)
}
