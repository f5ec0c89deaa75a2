package headway

import (
	"math"
	"sort"

	"busmetrics.transitwatch.org/internal/models"
)

// MaxGapSeconds separates real headways from overnight or data-outage gaps.
// Gaps above it are discarded and counted, not averaged.
const MaxGapSeconds = 7200.0 // 120 minutes

// Stats summarizes one route/day's headway behavior at its reference stop.
// Pointer metrics are nil when too few gaps were observed: the standard
// deviation and coefficient of variation need at least 2 gaps, the mean and
// median at least 1. Null, never a fabricated zero.
type Stats struct {
	ReferenceStopID string
	Observations    []models.HeadwayObservation

	MeanMinutes   *float64
	MedianMinutes *float64
	StdDevMinutes *float64
	// CV is stddev/mean, the bunching signal: 0 is perfectly regular
	// service, values near 1 mean effectively random arrivals.
	CV *float64

	GapsDiscarded int64
}

// Estimate derives successive-vehicle gaps at the route's reference stop.
// The arrival events already carry closest-approach proxy times, so each
// event is one vehicle pass. The reference stop is the one with the most
// passes; ties break to the lexicographically smallest stop ID.
func Estimate(routeID, day string, arrivals []models.ArrivalEvent) Stats {
	var stats Stats

	counts := make(map[string]int)
	for _, e := range arrivals {
		counts[e.StopID]++
	}
	for stopID, n := range counts {
		best := counts[stats.ReferenceStopID]
		if stats.ReferenceStopID == "" || n > best || (n == best && stopID < stats.ReferenceStopID) {
			stats.ReferenceStopID = stopID
		}
	}
	if stats.ReferenceStopID == "" {
		return stats
	}

	var passes []models.ArrivalEvent
	for _, e := range arrivals {
		if e.StopID == stats.ReferenceStopID {
			passes = append(passes, e)
		}
	}
	sort.Slice(passes, func(i, j int) bool {
		return passes[i].ObservedAt.Before(passes[j].ObservedAt)
	})

	var gaps []float64
	for i := 1; i < len(passes); i++ {
		gap := passes[i].ObservedAt.Sub(passes[i-1].ObservedAt).Seconds()
		if gap > MaxGapSeconds {
			stats.GapsDiscarded++
			continue
		}
		gaps = append(gaps, gap)
		stats.Observations = append(stats.Observations, models.HeadwayObservation{
			RouteID:    routeID,
			StopID:     stats.ReferenceStopID,
			VehicleA:   passes[i-1].VehicleID,
			VehicleB:   passes[i].VehicleID,
			GapSeconds: gap,
			Day:        day,
		})
	}

	if len(gaps) == 0 {
		return stats
	}

	stats.MeanMinutes = models.Float64Ptr(mean(gaps) / 60)
	stats.MedianMinutes = models.Float64Ptr(median(gaps) / 60)

	if len(gaps) >= 2 {
		sd := stddev(gaps)
		stats.StdDevMinutes = models.Float64Ptr(sd / 60)
		if m := mean(gaps); m > 0 {
			stats.CV = models.Float64Ptr(sd / m)
		}
	}

	return stats
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(values []float64) float64 {
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
