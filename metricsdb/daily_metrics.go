package metricsdb

import (
	"context"
	"database/sql"
	"fmt"

	"busmetrics.transitwatch.org/internal/models"
)

// HasDailyMetric reports whether a (route, day) row already exists. Without
// the recalculate flag, existing rows are skipped rather than reprocessed.
func (c *Client) HasDailyMetric(ctx context.Context, routeID, day string) (bool, error) {
	var n int
	err := c.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM route_metrics_daily WHERE route_id = ? AND day = ?
	`, routeID, day).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking daily metric for %s/%s: %w", routeID, day, err)
	}
	return n > 0, nil
}

// GetDailyMetric returns one persisted daily row, or sql.ErrNoRows.
func (c *Client) GetDailyMetric(ctx context.Context, routeID, day string) (models.DailyMetric, error) {
	row := c.DB.QueryRowContext(ctx, `
		SELECT route_id, day, otp_pct, early_pct, late_pct,
		       avg_headway_minutes, median_headway_minutes,
		       headway_stddev_minutes, headway_cv, avg_speed_mph, median_speed_mph,
		       matched_samples, total_samples, unique_vehicles, arrival_events
		FROM route_metrics_daily WHERE route_id = ? AND day = ?
	`, routeID, day)
	return scanDailyMetric(row)
}

// querier is satisfied by both *sql.DB and *sql.Tx, so window reads can run
// inside the persistence transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListDailyMetricsWindow returns a route's daily rows with day in
// [dayStart, dayEnd], ordered by day. This is the sole input to the rolling
// summary recomputation.
func (c *Client) ListDailyMetricsWindow(ctx context.Context, routeID, dayStart, dayEnd string) ([]models.DailyMetric, error) {
	return listDailyMetricsWindow(ctx, c.DB, routeID, dayStart, dayEnd)
}

func listDailyMetricsWindow(ctx context.Context, q querier, routeID, dayStart, dayEnd string) ([]models.DailyMetric, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT route_id, day, otp_pct, early_pct, late_pct,
		       avg_headway_minutes, median_headway_minutes,
		       headway_stddev_minutes, headway_cv, avg_speed_mph, median_speed_mph,
		       matched_samples, total_samples, unique_vehicles, arrival_events
		FROM route_metrics_daily
		WHERE route_id = ? AND day >= ? AND day <= ?
		ORDER BY day
	`, routeID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("error listing daily metrics for %s: %w", routeID, err)
	}
	defer rows.Close() // nolint:errcheck

	var metrics []models.DailyMetric
	for rows.Next() {
		m, err := scanDailyMetric(rows)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDailyMetric(row rowScanner) (models.DailyMetric, error) {
	var m models.DailyMetric
	var otp, early, late, avgH, medH, stdH, cv, avgSpeed, medSpeed sql.NullFloat64
	err := row.Scan(&m.RouteID, &m.Day, &otp, &early, &late,
		&avgH, &medH, &stdH, &cv, &avgSpeed, &medSpeed,
		&m.MatchedSamples, &m.TotalSamples, &m.UniqueVehicles, &m.ArrivalEvents)
	if err != nil {
		return models.DailyMetric{}, err
	}
	m.OTPPct = fromNullFloat(otp)
	m.EarlyPct = fromNullFloat(early)
	m.LatePct = fromNullFloat(late)
	m.AvgHeadwayMinutes = fromNullFloat(avgH)
	m.MedianHeadwayMinutes = fromNullFloat(medH)
	m.HeadwayStdDevMinutes = fromNullFloat(stdH)
	m.HeadwayCV = fromNullFloat(cv)
	m.AvgSpeedMPH = fromNullFloat(avgSpeed)
	m.MedianSpeedMPH = fromNullFloat(medSpeed)
	return m, nil
}

func upsertDailyMetric(ctx context.Context, tx *sql.Tx, m models.DailyMetric) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO route_metrics_daily (
			route_id, day, otp_pct, early_pct, late_pct,
			avg_headway_minutes, median_headway_minutes,
			headway_stddev_minutes, headway_cv, avg_speed_mph, median_speed_mph,
			matched_samples, total_samples, unique_vehicles, arrival_events
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, m.RouteID, m.Day, toNullFloat(m.OTPPct), toNullFloat(m.EarlyPct), toNullFloat(m.LatePct),
		toNullFloat(m.AvgHeadwayMinutes), toNullFloat(m.MedianHeadwayMinutes),
		toNullFloat(m.HeadwayStdDevMinutes), toNullFloat(m.HeadwayCV),
		toNullFloat(m.AvgSpeedMPH), toNullFloat(m.MedianSpeedMPH),
		m.MatchedSamples, m.TotalSamples, m.UniqueVehicles, m.ArrivalEvents)
	if err != nil {
		return fmt.Errorf("error upserting daily metric for %s/%s: %w", m.RouteID, m.Day, err)
	}
	return nil
}
