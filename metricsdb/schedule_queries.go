package metricsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// Route is a schedule reference row.
type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Type      int64
}

// Trip is a schedule reference row.
type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	DirectionID int64
	ShapeID     string
}

// Stop is a schedule reference row.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// StopTime is a schedule reference row. ArrivalSeconds is seconds since the
// start of the service day and may exceed 86400 for after-midnight service.
type StopTime struct {
	TripID         string
	StopID         string
	ArrivalSeconds int
	StopSequence   int
}

// ShapePoint is one vertex of a route path geometry.
type ShapePoint struct {
	ShapeID  string
	Lat      float64
	Lon      float64
	Sequence int
}

// CalendarException marks a (service_id, date) with special or removed service.
type CalendarException struct {
	ServiceID     string
	Date          string // YYYYMMDD
	ExceptionType int    // 1 = added, 2 = removed
}

// ListRouteIDs returns all route IDs in the schedule reference, ordered.
func (c *Client) ListRouteIDs(ctx context.Context) ([]string, error) {
	rows, err := c.DB.QueryContext(ctx, `SELECT route_id FROM routes ORDER BY route_id`)
	if err != nil {
		return nil, fmt.Errorf("error listing routes: %w", err)
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

// GetRoute returns one route, or sql.ErrNoRows when the route is absent from
// the schedule reference.
func (c *Client) GetRoute(ctx context.Context, routeID string) (Route, error) {
	var r Route
	var shortName, longName, agencyID sql.NullString
	err := c.DB.QueryRowContext(ctx, `
		SELECT route_id, agency_id, short_name, long_name, type
		FROM routes WHERE route_id = ?
	`, routeID).Scan(&r.ID, &agencyID, &shortName, &longName, &r.Type)
	if err != nil {
		return Route{}, err
	}
	r.AgencyID = agencyID.String
	r.ShortName = shortName.String
	r.LongName = longName.String
	return r, nil
}

// ListTripsForRoute returns all trips serving a route.
func (c *Client) ListTripsForRoute(ctx context.Context, routeID string) ([]Trip, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT trip_id, route_id, service_id, COALESCE(direction_id, 0), COALESCE(shape_id, '')
		FROM trips WHERE route_id = ? ORDER BY trip_id
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("error listing trips for route %s: %w", routeID, err)
	}
	defer rows.Close() // nolint:errcheck

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.ServiceID, &t.DirectionID, &t.ShapeID); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// ListStopTimesForRoute returns every stop time of every trip on the route,
// ordered by trip and stop sequence.
func (c *Client) ListStopTimesForRoute(ctx context.Context, routeID string) ([]StopTime, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT st.trip_id, st.stop_id, st.arrival_seconds, st.stop_sequence
		FROM stop_times st
		JOIN trips t ON t.trip_id = st.trip_id
		WHERE t.route_id = ?
		ORDER BY st.trip_id, st.stop_sequence
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("error listing stop times for route %s: %w", routeID, err)
	}
	defer rows.Close() // nolint:errcheck

	var stopTimes []StopTime
	for rows.Next() {
		var st StopTime
		if err := rows.Scan(&st.TripID, &st.StopID, &st.ArrivalSeconds, &st.StopSequence); err != nil {
			return nil, err
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, rows.Err()
}

// ListStopsForRoute returns the distinct stops visited by any trip on the
// route. Scoping the set per route is what keeps nearest-stop lookups cheap.
func (c *Client) ListStopsForRoute(ctx context.Context, routeID string) ([]Stop, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT DISTINCT s.stop_id, COALESCE(s.name, ''), s.lat, s.lon
		FROM stops s
		JOIN stop_times st ON st.stop_id = s.stop_id
		JOIN trips t ON t.trip_id = st.trip_id
		WHERE t.route_id = ?
		ORDER BY s.stop_id
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("error listing stops for route %s: %w", routeID, err)
	}
	defer rows.Close() // nolint:errcheck

	var stops []Stop
	for rows.Next() {
		var s Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// ListShapePoints returns the ordered polyline for a shape.
func (c *Client) ListShapePoints(ctx context.Context, shapeID string) ([]ShapePoint, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT shape_id, lat, lon, pt_sequence
		FROM shapes WHERE shape_id = ? ORDER BY pt_sequence
	`, shapeID)
	if err != nil {
		return nil, fmt.Errorf("error listing shape points for %s: %w", shapeID, err)
	}
	defer rows.Close() // nolint:errcheck

	var points []ShapePoint
	for rows.Next() {
		var p ShapePoint
		if err := rows.Scan(&p.ShapeID, &p.Lat, &p.Lon, &p.Sequence); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// ListRemovedServiceDates returns (service_id, date) pairs whose normal
// service is removed (exception_type = 2). Trips running one of these
// service IDs on the matching date are excluded from metrics to keep
// holiday schedules from polluting weekday statistics.
func (c *Client) ListRemovedServiceDates(ctx context.Context) ([]CalendarException, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT service_id, date, exception_type
		FROM calendar_dates WHERE exception_type = 2
	`)
	if err != nil {
		return nil, fmt.Errorf("error listing calendar exceptions: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var exceptions []CalendarException
	for rows.Next() {
		var e CalendarException
		if err := rows.Scan(&e.ServiceID, &e.Date, &e.ExceptionType); err != nil {
			return nil, err
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, rows.Err()
}
