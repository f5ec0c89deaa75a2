package stopindex

import (
	"fmt"
	"math"

	"busmetrics.transitwatch.org/internal/models"
	"busmetrics.transitwatch.org/internal/schedule"
	"busmetrics.transitwatch.org/metricsdb"

	"github.com/tidwall/rtree"
)

// AtStopRadiusMeters is the distance within which a vehicle is considered
// to be at a stop.
const AtStopRadiusMeters = 50.0

// searchRadiusMeters bounds the R-tree box query; anything farther is found
// by the full-scan fallback.
const searchRadiusMeters = 500.0

// Index answers nearest-stop queries for a single route. It holds only the
// stops visited by that route's trips, which is what makes per-sample
// lookups cheap. Build one per route per run; instances are not shared
// across workers and are read-only after Build.
type Index struct {
	routeID string
	tree    rtree.RTree
	stops   []metricsdb.Stop
}

// Build constructs the index from a route reference. A route with zero
// stops is a fatal precondition for that route's unit.
func Build(ref *schedule.RouteReference) (*Index, error) {
	if len(ref.Stops) == 0 {
		return nil, fmt.Errorf("route %s has no stops", ref.Route.ID)
	}

	idx := &Index{routeID: ref.Route.ID}
	for _, s := range ref.Stops {
		idx.stops = append(idx.stops, s)
		idx.tree.Insert(
			[2]float64{s.Lat, s.Lon}, // min
			[2]float64{s.Lat, s.Lon}, // max
			s,
		)
	}
	return idx, nil
}

// Nearest returns the stop closest to the given point and its distance in
// meters. ok is false only for an empty index.
func (idx *Index) Nearest(p models.CoordinatePoint) (stopID string, meters float64, ok bool) {
	// Degrees of latitude per meter is constant; longitude shrinks with
	// latitude.
	latDelta := searchRadiusMeters / 111320.0
	lonDelta := latDelta / math.Cos(p.Lat*math.Pi/180)

	best := math.Inf(1)
	var bestStop metricsdb.Stop

	idx.tree.Search(
		[2]float64{p.Lat - latDelta, p.Lon - lonDelta},
		[2]float64{p.Lat + latDelta, p.Lon + lonDelta},
		func(min, max [2]float64, data interface{}) bool {
			if s, isStop := data.(metricsdb.Stop); isStop {
				d := models.Haversine(p.Lat, p.Lon, s.Lat, s.Lon)
				if d < best {
					best = d
					bestStop = s
				}
			}
			return true
		},
	)

	if math.IsInf(best, 1) {
		// Nothing inside the search box; scan everything.
		for _, s := range idx.stops {
			d := models.Haversine(p.Lat, p.Lon, s.Lat, s.Lon)
			if d < best {
				best = d
				bestStop = s
			}
		}
	}

	if math.IsInf(best, 1) {
		return "", 0, false
	}
	return bestStop.ID, best, true
}

// IsAtStop reports whether a nearest-stop distance counts as at-stop.
func IsAtStop(meters float64) bool {
	return meters <= AtStopRadiusMeters
}
