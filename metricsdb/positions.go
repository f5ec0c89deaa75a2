package metricsdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"busmetrics.transitwatch.org/internal/models"
)

// InsertPositionSamples appends raw position rows. The aggregation pipeline
// never calls this; it exists for the ingestion collaborator and for tests.
func (c *Client) InsertPositionSamples(ctx context.Context, samples []models.PositionSample) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vehicle_positions (
			vehicle_id, route_id, trip_id, lat, lon, speed_mph, bearing,
			reported_deviation, observed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, s := range samples {
		_, err := stmt.ExecContext(ctx,
			s.VehicleID, s.RouteID, toNullString(s.TripIDHint), s.Lat, s.Lon,
			toNullFloat(s.SpeedMPH), toNullFloat(s.Bearing),
			toNullFloat(s.ReportedDeviation), s.ObservedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("error inserting position sample: %w", err)
		}
	}

	return tx.Commit()
}

// ListPositionsForRouteDay returns one service day of samples for a route,
// ordered by observation time. Day boundaries are UTC midnights.
func (c *Client) ListPositionsForRouteDay(ctx context.Context, routeID string, dayStart time.Time) ([]models.PositionSample, error) {
	start := dayStart.Unix()
	end := dayStart.Add(24 * time.Hour).Unix()

	rows, err := c.DB.QueryContext(ctx, `
		SELECT id, vehicle_id, route_id, COALESCE(trip_id, ''), lat, lon,
		       speed_mph, bearing, reported_deviation, observed_at
		FROM vehicle_positions
		WHERE route_id = ? AND observed_at >= ? AND observed_at < ?
		ORDER BY observed_at, id
	`, routeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("error listing positions for route %s: %w", routeID, err)
	}
	defer rows.Close() // nolint:errcheck

	var samples []models.PositionSample
	for rows.Next() {
		var s models.PositionSample
		var speed, bearing, reported sql.NullFloat64
		var observedAt int64
		err := rows.Scan(&s.ID, &s.VehicleID, &s.RouteID, &s.TripIDHint,
			&s.Lat, &s.Lon, &speed, &bearing, &reported, &observedAt)
		if err != nil {
			return nil, err
		}
		s.SpeedMPH = fromNullFloat(speed)
		s.Bearing = fromNullFloat(bearing)
		s.ReportedDeviation = fromNullFloat(reported)
		s.ObservedAt = time.Unix(observedAt, 0).UTC()
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// ListRouteIDsWithPositions returns the routes that have at least one raw
// sample in the given day range. Used when a run is invoked without a route
// filter.
func (c *Client) ListRouteIDsWithPositions(ctx context.Context, start, end time.Time) ([]string, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT DISTINCT route_id FROM vehicle_positions
		WHERE observed_at >= ? AND observed_at < ?
		ORDER BY route_id
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("error listing routes with positions: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
