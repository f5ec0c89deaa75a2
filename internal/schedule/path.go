package schedule

import (
	"math"

	"busmetrics.transitwatch.org/internal/models"
)

// Path is an ordered route polyline with precomputed cumulative distances,
// used to measure travel along the route rather than straight-line.
type Path struct {
	Points []models.CoordinatePoint
	// Cumulative[i] is the distance in meters from Points[0] to Points[i].
	Cumulative []float64
}

// NewPath builds a Path from ordered polyline points.
func NewPath(points []models.CoordinatePoint) *Path {
	cumulative := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cumulative[i] = cumulative[i-1] + points[i-1].Distance(points[i])
	}
	return &Path{Points: points, Cumulative: cumulative}
}

// Length returns the total path length in meters.
func (p *Path) Length() float64 {
	if len(p.Cumulative) == 0 {
		return 0
	}
	return p.Cumulative[len(p.Cumulative)-1]
}

// Project finds the point on the path closest to q. It returns the distance
// along the path to that point and the offset from q to the path in meters.
func (p *Path) Project(q models.CoordinatePoint) (along, offset float64) {
	if len(p.Points) == 0 {
		return 0, math.Inf(1)
	}
	if len(p.Points) == 1 {
		return 0, p.Points[0].Distance(q)
	}

	bestOffset := math.Inf(1)
	bestAlong := 0.0

	for i := 0; i < len(p.Points)-1; i++ {
		frac, dist := projectOntoSegment(p.Points[i], p.Points[i+1], q)
		if dist < bestOffset {
			bestOffset = dist
			segLen := p.Cumulative[i+1] - p.Cumulative[i]
			bestAlong = p.Cumulative[i] + frac*segLen
		}
	}

	return bestAlong, bestOffset
}

// DistanceAlong returns the along-path distance between two projected
// positions, in meters. Negative when b is behind a.
func (p *Path) DistanceAlong(alongA, alongB float64) float64 {
	return alongB - alongA
}

// projectOntoSegment projects q onto the segment a-b using a local
// equirectangular approximation, valid at stop-to-stop scales. It returns
// the fraction along the segment in [0,1] and the distance from q to the
// projected point in meters.
func projectOntoSegment(a, b, q models.CoordinatePoint) (frac, dist float64) {
	cosLat := math.Cos(a.Lat * math.Pi / 180)

	ax, ay := 0.0, 0.0
	bx := (b.Lon - a.Lon) * cosLat
	by := b.Lat - a.Lat
	qx := (q.Lon - a.Lon) * cosLat
	qy := q.Lat - a.Lat

	segLenSq := bx*bx + by*by
	if segLenSq == 0 {
		return 0, a.Distance(q)
	}

	frac = ((qx-ax)*bx + (qy-ay)*by) / segLenSq
	frac = math.Max(0, math.Min(1, frac))

	proj := models.CoordinatePoint{
		Lat: a.Lat + frac*by,
		Lon: a.Lon + frac*bx/cosLat,
	}
	return frac, proj.Distance(q)
}
