package schedule

import (
	"time"

	"busmetrics.transitwatch.org/internal/models"
	"busmetrics.transitwatch.org/metricsdb"
)

// StopTimeEntry is one scheduled stop on a trip, with the stop's coordinates
// resolved so matching never needs another lookup.
type StopTimeEntry struct {
	StopID         string
	ArrivalSeconds int // seconds since service day start; may exceed 86400
	Sequence       int
	Point          models.CoordinatePoint
}

// TripSchedule is one scheduled trip with its ordered stop times.
// Invariant: StopTimes is strictly increasing in ArrivalSeconds; trips that
// violate it are dropped at load time and counted.
type TripSchedule struct {
	ID          string
	RouteID     string
	ServiceID   string
	DirectionID int64
	ShapeID     string
	StopTimes   []StopTimeEntry
}

// StartSeconds returns the trip's first scheduled arrival offset.
func (t *TripSchedule) StartSeconds() int {
	return t.StopTimes[0].ArrivalSeconds
}

// EndSeconds returns the trip's last scheduled arrival offset.
func (t *TripSchedule) EndSeconds() int {
	return t.StopTimes[len(t.StopTimes)-1].ArrivalSeconds
}

// ArrivalAtStop returns the scheduled arrival offset at a stop. When a trip
// visits the same stop twice (loop routes), the first visit wins.
func (t *TripSchedule) ArrivalAtStop(stopID string) (int, bool) {
	for _, st := range t.StopTimes {
		if st.StopID == stopID {
			return st.ArrivalSeconds, true
		}
	}
	return 0, false
}

// InServiceWindow reports whether the trip is scheduled to be underway at
// offset t, widened by tolerance seconds on both ends.
func (t *TripSchedule) InServiceWindow(offsetSeconds, toleranceSeconds int) bool {
	return offsetSeconds >= t.StartSeconds()-toleranceSeconds &&
		offsetSeconds <= t.EndSeconds()+toleranceSeconds
}

// RouteReference is the immutable per-route slice of the schedule used by
// one aggregation unit. Each worker loads its own copy; nothing here is
// shared or mutated after Load.
type RouteReference struct {
	Route metricsdb.Route
	// Trips indexes every valid trip on the route by trip ID.
	Trips map[string]*TripSchedule
	// TripList is Trips in deterministic (trip ID) order.
	TripList []*TripSchedule
	// Stops holds every stop visited by any trip on the route.
	Stops map[string]metricsdb.Stop
	// Paths indexes route geometry by shape ID.
	Paths map[string]*Path
	// removedService marks "serviceID|YYYYMMDD" pairs with removed service.
	removedService map[string]bool
	// DroppedTrips counts trips discarded for non-monotonic stop times.
	DroppedTrips int
}

// StopPoint returns the coordinates of a stop on the route.
func (r *RouteReference) StopPoint(stopID string) (models.CoordinatePoint, bool) {
	s, ok := r.Stops[stopID]
	if !ok {
		return models.CoordinatePoint{}, false
	}
	return models.CoordinatePoint{Lat: s.Lat, Lon: s.Lon}, true
}

// PathForTrip returns the geometry for a trip's shape, or nil when the feed
// has no shape for it.
func (r *RouteReference) PathForTrip(t *TripSchedule) *Path {
	if t == nil || t.ShapeID == "" {
		return nil
	}
	return r.Paths[t.ShapeID]
}

// ServiceRemovedOn reports whether the trip's service is removed by a
// calendar exception on the given day. Such trips run a special schedule and
// are excluded from metrics.
func (r *RouteReference) ServiceRemovedOn(t *TripSchedule, day time.Time) bool {
	return r.removedService[t.ServiceID+"|"+day.Format("20060102")]
}
