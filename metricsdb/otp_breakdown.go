package metricsdb

import (
	"context"
	"database/sql"
	"fmt"

	"busmetrics.transitwatch.org/internal/models"
)

// ListOTPBreakdowns returns a day's stop-level and time-period OTP rows,
// ordered by scope then key.
func (c *Client) ListOTPBreakdowns(ctx context.Context, routeID, day string) ([]models.OTPBreakdown, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT route_id, day, scope, scope_key, on_time, early, late, otp_pct
		FROM route_otp_breakdown_daily
		WHERE route_id = ? AND day = ?
		ORDER BY scope, scope_key
	`, routeID, day)
	if err != nil {
		return nil, fmt.Errorf("error listing OTP breakdowns for %s/%s: %w", routeID, day, err)
	}
	defer rows.Close() // nolint:errcheck

	var breakdowns []models.OTPBreakdown
	for rows.Next() {
		var b models.OTPBreakdown
		var otp sql.NullFloat64
		if err := rows.Scan(&b.RouteID, &b.Day, &b.Scope, &b.Key, &b.OnTime, &b.Early, &b.Late, &otp); err != nil {
			return nil, err
		}
		b.OTPPct = fromNullFloat(otp)
		breakdowns = append(breakdowns, b)
	}
	return breakdowns, rows.Err()
}

// replaceOTPBreakdowns rewrites the day's breakdown rows. A recalculation
// can shrink the set, so stale rows are deleted rather than left behind.
func replaceOTPBreakdowns(ctx context.Context, tx *sql.Tx, routeID, day string, breakdowns []models.OTPBreakdown) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM route_otp_breakdown_daily WHERE route_id = ? AND day = ?
	`, routeID, day); err != nil {
		return fmt.Errorf("error clearing OTP breakdowns for %s/%s: %w", routeID, day, err)
	}

	for _, b := range breakdowns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO route_otp_breakdown_daily (
				route_id, day, scope, scope_key, on_time, early, late, otp_pct
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
		`, b.RouteID, b.Day, b.Scope, b.Key, b.OnTime, b.Early, b.Late, toNullFloat(b.OTPPct)); err != nil {
			return fmt.Errorf("error inserting OTP breakdown for %s/%s: %w", routeID, day, err)
		}
	}
	return nil
}
