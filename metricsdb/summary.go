package metricsdb

import (
	"context"
	"database/sql"
	"fmt"

	"busmetrics.transitwatch.org/internal/logging"
	"busmetrics.transitwatch.org/internal/models"
)

// GetRollingSummary returns a route's rolling summary row, or sql.ErrNoRows.
func (c *Client) GetRollingSummary(ctx context.Context, routeID string) (models.RollingSummary, error) {
	var s models.RollingSummary
	var otp, early, late, headway, speed sql.NullFloat64
	err := c.DB.QueryRowContext(ctx, `
		SELECT route_id, days_analyzed, day_start, day_end,
		       otp_pct, early_pct, late_pct, avg_headway_minutes, avg_speed_mph,
		       total_arrivals, unique_vehicles
		FROM route_metrics_summary WHERE route_id = ?
	`, routeID).Scan(&s.RouteID, &s.DaysAnalyzed, &s.DayStart, &s.DayEnd,
		&otp, &early, &late, &headway, &speed,
		&s.TotalArrivals, &s.UniqueVehicles)
	if err != nil {
		return models.RollingSummary{}, err
	}
	s.OTPPct = fromNullFloat(otp)
	s.EarlyPct = fromNullFloat(early)
	s.LatePct = fromNullFloat(late)
	s.AvgHeadwayMinutes = fromNullFloat(headway)
	s.AvgSpeedMPH = fromNullFloat(speed)
	return s, nil
}

func replaceRollingSummary(ctx context.Context, tx *sql.Tx, s models.RollingSummary) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO route_metrics_summary (
			route_id, days_analyzed, day_start, day_end,
			otp_pct, early_pct, late_pct, avg_headway_minutes, avg_speed_mph,
			total_arrivals, unique_vehicles
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, s.RouteID, s.DaysAnalyzed, s.DayStart, s.DayEnd,
		toNullFloat(s.OTPPct), toNullFloat(s.EarlyPct), toNullFloat(s.LatePct),
		toNullFloat(s.AvgHeadwayMinutes), toNullFloat(s.AvgSpeedMPH),
		s.TotalArrivals, s.UniqueVehicles)
	if err != nil {
		return fmt.Errorf("error replacing rolling summary for %s: %w", s.RouteID, err)
	}
	return nil
}

// SummarizeFunc builds a route's rolling summary from the daily rows in its
// trailing window.
type SummarizeFunc func(window []models.DailyMetric) models.RollingSummary

// PersistRouteDay writes one DailyMetric, its OTP breakdown rows, and the
// recomputed RollingSummary in a single transaction. The summary's window is
// read inside the transaction, after the day's own upsert, so it always
// covers every daily row committed before this one and can never omit a row
// another worker just persisted.
func (c *Client) PersistRouteDay(ctx context.Context, metric models.DailyMetric, breakdowns []models.OTPBreakdown, windowStart, windowEnd string, summarize SummarizeFunc) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, logging.FromContext(ctx), "persist_route_day")

	if err := upsertDailyMetric(ctx, tx, metric); err != nil {
		return err
	}
	if err := replaceOTPBreakdowns(ctx, tx, metric.RouteID, metric.Day, breakdowns); err != nil {
		return err
	}

	window, err := listDailyMetricsWindow(ctx, tx, metric.RouteID, windowStart, windowEnd)
	if err != nil {
		return err
	}
	if err := replaceRollingSummary(ctx, tx, summarize(window)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing metrics for %s/%s: %w", metric.RouteID, metric.Day, err)
	}
	return nil
}
