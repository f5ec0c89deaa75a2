package classify

import (
	"sort"

	"busmetrics.transitwatch.org/internal/models"
)

const (
	metersPerSecondToMPH = 2.236936

	// MaxPlausibleSpeedMPH is the sanity ceiling for derived speeds; a pair
	// of samples implying more than this is treated as a GPS glitch and
	// discarded.
	MaxPlausibleSpeedMPH = 70.0
)

// deriveSpeeds computes instantaneous speeds from consecutive positions of
// the same vehicle on the same trip, measured along the route shape rather
// than straight-line. Pairs with non-positive elapsed time or implausible
// implied speed are dropped as outliers.
func (c *Classifier) deriveSpeeds(groups map[visitKey][]models.MatchResult) []models.SpeedSample {
	var speeds []models.SpeedSample

	keys := make([]visitKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].vehicleID != keys[j].vehicleID {
			return keys[i].vehicleID < keys[j].vehicleID
		}
		return keys[i].tripID < keys[j].tripID
	})

	for _, key := range keys {
		matches := groups[key]
		trip := c.ref.Trips[key.tripID]
		path := c.ref.PathForTrip(trip)
		if path == nil {
			continue
		}

		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Sample.ObservedAt.Before(matches[j].Sample.ObservedAt)
		})

		for i := 1; i < len(matches); i++ {
			prev, curr := matches[i-1], matches[i]

			elapsed := curr.Sample.ObservedAt.Sub(prev.Sample.ObservedAt).Seconds()
			if elapsed <= 0 {
				continue
			}

			alongPrev, _ := path.Project(prev.Sample.Point())
			alongCurr, _ := path.Project(curr.Sample.Point())
			dist := path.DistanceAlong(alongPrev, alongCurr)
			if dist < 0 {
				dist = -dist
			}

			mph := dist / elapsed * metersPerSecondToMPH
			if mph > MaxPlausibleSpeedMPH {
				continue
			}

			speeds = append(speeds, models.SpeedSample{
				RouteID:     curr.Sample.RouteID,
				VehicleID:   key.vehicleID,
				TripID:      key.tripID,
				SpeedMPH:    mph,
				ElapsedSecs: elapsed,
				ObservedAt:  curr.Sample.ObservedAt,
			})
		}
	}

	return speeds
}
