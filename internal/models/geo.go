package models

import "math"

type CoordinatePoint struct {
	Lat float64
	Lon float64
}

const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance between two points in meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance returns the great-circle distance from p to q in meters.
func (p CoordinatePoint) Distance(q CoordinatePoint) float64 {
	return Haversine(p.Lat, p.Lon, q.Lat, q.Lon)
}

// Interpolate returns the point a fraction f of the way from p to q.
// Linear in lat/lon, which is adequate at stop-to-stop distances.
func (p CoordinatePoint) Interpolate(q CoordinatePoint, f float64) CoordinatePoint {
	return CoordinatePoint{
		Lat: p.Lat + (q.Lat-p.Lat)*f,
		Lon: p.Lon + (q.Lon-p.Lon)*f,
	}
}
