package classify

import (
	"sort"
	"time"

	"busmetrics.transitwatch.org/internal/models"
	"busmetrics.transitwatch.org/internal/schedule"
	"busmetrics.transitwatch.org/internal/stopindex"
)

// Classifier turns one route/day's match results into arrival events and
// speed samples. Pure CPU work; no I/O.
type Classifier struct {
	ref      *schedule.RouteReference
	dayStart time.Time
}

func NewClassifier(ref *schedule.RouteReference, dayStart time.Time) *Classifier {
	return &Classifier{ref: ref, dayStart: dayStart}
}

// Result is the derived-event output for one route/day.
type Result struct {
	Arrivals []models.ArrivalEvent
	Speeds   []models.SpeedSample
	// DeviationChecks cross-validate the vendor-reported deviation against
	// the computed one. They never influence Arrivals.
	DeviationChecks []models.DeviationCheck
	// ExceptionServiceSkipped counts matches dropped because their trip's
	// service was removed by a calendar exception on this day.
	ExceptionServiceSkipped int64
}

// visitKey identifies one vehicle's pass of one stop on one trip. The
// stopID is empty when grouping whole vehicle/trip traces.
type visitKey struct {
	vehicleID string
	tripID    string
	stopID    string
}

// Classify derives events from the unit's match results. Only matched
// samples within the at-stop radius with a resolvable scheduled time can
// produce arrival events; within each (vehicle, trip, stop) visit the
// closest-approach sample stands in for the unobservable arrival instant.
func (c *Classifier) Classify(matches []models.MatchResult) Result {
	var result Result

	closest := make(map[visitKey]models.MatchResult)
	byVehicleTrip := make(map[visitKey][]models.MatchResult)

	for _, mr := range matches {
		if mr.Unmatched {
			continue
		}

		trip, ok := c.ref.Trips[mr.TripID]
		if !ok {
			continue
		}
		if c.ref.ServiceRemovedOn(trip, c.dayStart) {
			result.ExceptionServiceSkipped++
			continue
		}

		// Group for speed derivation regardless of stop proximity.
		tripKey := visitKey{vehicleID: mr.Sample.VehicleID, tripID: mr.TripID}
		byVehicleTrip[tripKey] = append(byVehicleTrip[tripKey], mr)

		if mr.Sample.ReportedDeviation != nil && mr.ScheduledSeconds >= 0 {
			reported := *mr.Sample.ReportedDeviation * 60
			result.DeviationChecks = append(result.DeviationChecks, models.DeviationCheck{
				RouteID:         mr.Sample.RouteID,
				TripID:          mr.TripID,
				VehicleID:       mr.Sample.VehicleID,
				ReportedSeconds: reported,
				ComputedSeconds: mr.DeviationSeconds,
				DisagreeSeconds: abs(reported - mr.DeviationSeconds),
				ObservedAt:      mr.Sample.ObservedAt,
			})
		}

		if !stopindex.IsAtStop(mr.StopDistance) || mr.ScheduledSeconds < 0 {
			continue
		}

		key := visitKey{vehicleID: mr.Sample.VehicleID, tripID: mr.TripID, stopID: mr.StopID}
		prev, seen := closest[key]
		if !seen || mr.StopDistance < prev.StopDistance ||
			(mr.StopDistance == prev.StopDistance && mr.Sample.ObservedAt.Before(prev.Sample.ObservedAt)) {
			closest[key] = mr
		}
	}

	for _, mr := range closest {
		result.Arrivals = append(result.Arrivals, models.ArrivalEvent{
			RouteID:          mr.Sample.RouteID,
			StopID:           mr.StopID,
			TripID:           mr.TripID,
			VehicleID:        mr.Sample.VehicleID,
			ScheduledSeconds: mr.ScheduledSeconds,
			ObservedAt:       mr.Sample.ObservedAt,
			DeviationSeconds: mr.DeviationSeconds,
			Classification:   models.Classify(mr.DeviationSeconds),
			Period:           models.PeriodForHour(mr.ScheduledSeconds / 3600),
			StopDistance:     mr.StopDistance,
		})
	}

	// Map iteration is randomized; restore a stable order so reruns are
	// byte-identical.
	sort.Slice(result.Arrivals, func(i, j int) bool {
		a, b := result.Arrivals[i], result.Arrivals[j]
		if !a.ObservedAt.Equal(b.ObservedAt) {
			return a.ObservedAt.Before(b.ObservedAt)
		}
		if a.VehicleID != b.VehicleID {
			return a.VehicleID < b.VehicleID
		}
		return a.StopID < b.StopID
	})

	result.Speeds = c.deriveSpeeds(byVehicleTrip)

	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
