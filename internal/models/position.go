package models

import "time"

// PositionSample is a single polled vehicle position as written by the
// ingestion collector. Rows are append-only; this pipeline only reads them.
type PositionSample struct {
	ID         int64
	VehicleID  string
	RouteID    string
	TripIDHint string // trip_id reported by the realtime feed; often invalid
	Lat        float64
	Lon        float64
	SpeedMPH   *float64
	Bearing    *float64
	// ReportedDeviation is the deviation in minutes claimed by a secondary
	// vendor feed. It is kept only for cross-validation and never feeds the
	// primary arrival classification.
	ReportedDeviation *float64
	ObservedAt        time.Time
}

// Point returns the sample's coordinates.
func (p PositionSample) Point() CoordinatePoint {
	return CoordinatePoint{Lat: p.Lat, Lon: p.Lon}
}

// HasValidCoordinates reports whether the sample carries plausible
// coordinates. Collectors occasionally emit zeroed or out-of-range points.
func (p PositionSample) HasValidCoordinates() bool {
	if p.Lat == 0 && p.Lon == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
