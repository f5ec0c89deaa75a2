package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"busmetrics.transitwatch.org/internal/models"
	"busmetrics.transitwatch.org/metricsdb"
)

// ErrNoSchedule is returned when a route is absent from the schedule
// reference, e.g. removed from the feed. Callers treat it as an
// input-absence failure for that route only, never as fatal to the run.
var ErrNoSchedule = errors.New("no schedule reference for route")

// Manager loads immutable per-route schedule references from the metrics
// store.
type Manager struct {
	client *metricsdb.Client
}

func NewManager(client *metricsdb.Client) *Manager {
	return &Manager{client: client}
}

// LoadRoute builds the RouteReference for one route. The result is a fresh
// value each call; concurrent aggregation workers each load their own.
func (m *Manager) LoadRoute(ctx context.Context, routeID string) (*RouteReference, error) {
	route, err := m.client.GetRoute(ctx, routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoSchedule, routeID)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading route %s: %w", routeID, err)
	}

	trips, err := m.client.ListTripsForRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	stopTimes, err := m.client.ListStopTimesForRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	stops, err := m.client.ListStopsForRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	ref := &RouteReference{
		Route:          route,
		Trips:          make(map[string]*TripSchedule, len(trips)),
		Stops:          make(map[string]metricsdb.Stop, len(stops)),
		Paths:          make(map[string]*Path),
		removedService: make(map[string]bool),
	}

	for _, s := range stops {
		ref.Stops[s.ID] = s
	}

	stopTimesByTrip := make(map[string][]metricsdb.StopTime, len(trips))
	for _, st := range stopTimes {
		stopTimesByTrip[st.TripID] = append(stopTimesByTrip[st.TripID], st)
	}

	for _, t := range trips {
		sts := stopTimesByTrip[t.ID]
		if len(sts) == 0 {
			continue
		}

		entries := make([]StopTimeEntry, 0, len(sts))
		monotonic := true
		for i, st := range sts {
			if i > 0 && st.ArrivalSeconds <= sts[i-1].ArrivalSeconds {
				monotonic = false
				break
			}
			stop, ok := ref.Stops[st.StopID]
			if !ok {
				continue
			}
			entries = append(entries, StopTimeEntry{
				StopID:         st.StopID,
				ArrivalSeconds: st.ArrivalSeconds,
				Sequence:       st.StopSequence,
				Point:          models.CoordinatePoint{Lat: stop.Lat, Lon: stop.Lon},
			})
		}

		// Non-monotonic stop times are a data-integrity defect; drop the
		// trip and count it rather than crash the unit.
		if !monotonic || len(entries) < 2 {
			ref.DroppedTrips++
			continue
		}

		ts := &TripSchedule{
			ID:          t.ID,
			RouteID:     t.RouteID,
			ServiceID:   t.ServiceID,
			DirectionID: t.DirectionID,
			ShapeID:     t.ShapeID,
			StopTimes:   entries,
		}
		ref.Trips[t.ID] = ts
	}

	ref.TripList = make([]*TripSchedule, 0, len(ref.Trips))
	for _, t := range ref.Trips {
		ref.TripList = append(ref.TripList, t)
	}
	sort.Slice(ref.TripList, func(i, j int) bool {
		return ref.TripList[i].ID < ref.TripList[j].ID
	})

	if err := m.loadPaths(ctx, ref); err != nil {
		return nil, err
	}

	exceptions, err := m.client.ListRemovedServiceDates(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range exceptions {
		ref.removedService[e.ServiceID+"|"+e.Date] = true
	}

	return ref, nil
}

func (m *Manager) loadPaths(ctx context.Context, ref *RouteReference) error {
	for _, t := range ref.TripList {
		if t.ShapeID == "" {
			continue
		}
		if _, ok := ref.Paths[t.ShapeID]; ok {
			continue
		}
		points, err := m.client.ListShapePoints(ctx, t.ShapeID)
		if err != nil {
			return err
		}
		if len(points) < 2 {
			continue
		}
		coords := make([]models.CoordinatePoint, len(points))
		for i, p := range points {
			coords[i] = models.CoordinatePoint{Lat: p.Lat, Lon: p.Lon}
		}
		ref.Paths[t.ShapeID] = NewPath(coords)
	}
	return nil
}
