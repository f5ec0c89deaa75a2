package aggregate

import (
	"math"
	"sort"

	"busmetrics.transitwatch.org/internal/classify"
	"busmetrics.transitwatch.org/internal/headway"
	"busmetrics.transitwatch.org/internal/models"
)

// buildDailyMetric folds one unit's derived events into the persisted row.
// Fixed rounding keeps reruns over identical inputs byte-identical.
func buildDailyMetric(routeID, day string, samples []models.PositionSample, matched int64, derived classify.Result, headwayStats headway.Stats) models.DailyMetric {
	metric := models.DailyMetric{
		RouteID:        routeID,
		Day:            day,
		MatchedSamples: matched,
		TotalSamples:   int64(len(samples)),
		UniqueVehicles: countUniqueVehicles(samples),
		ArrivalEvents:  int64(len(derived.Arrivals)),
	}

	line := classify.LineOTP(derived.Arrivals)
	metric.OTPPct = round2(line.OnTimePct())
	metric.EarlyPct = round2(line.EarlyPct())
	metric.LatePct = round2(line.LatePct())

	metric.AvgHeadwayMinutes = round2(headwayStats.MeanMinutes)
	metric.MedianHeadwayMinutes = round2(headwayStats.MedianMinutes)
	metric.HeadwayStdDevMinutes = round2(headwayStats.StdDevMinutes)
	metric.HeadwayCV = round3(headwayStats.CV)

	metric.AvgSpeedMPH = round2(avgSpeedMPH(derived.Speeds, samples))
	metric.MedianSpeedMPH = round2(medianSpeedMPH(derived.Speeds, samples))

	return metric
}

// buildOTPBreakdowns flattens the day's stop-level and time-period event
// groupings into persistable rows, sorted so reruns emit identical sets.
func buildOTPBreakdowns(routeID, day string, arrivals []models.ArrivalEvent) []models.OTPBreakdown {
	var breakdowns []models.OTPBreakdown

	for stopID, stats := range classify.StopOTP(arrivals) {
		breakdowns = append(breakdowns, breakdownRow(routeID, day, models.BreakdownScopeStop, stopID, stats))
	}
	for period, stats := range classify.PeriodOTP(arrivals) {
		breakdowns = append(breakdowns, breakdownRow(routeID, day, models.BreakdownScopePeriod, string(period), stats))
	}

	sort.Slice(breakdowns, func(i, j int) bool {
		if breakdowns[i].Scope != breakdowns[j].Scope {
			return breakdowns[i].Scope < breakdowns[j].Scope
		}
		return breakdowns[i].Key < breakdowns[j].Key
	})
	return breakdowns
}

func breakdownRow(routeID, day, scope, key string, stats classify.OTPStats) models.OTPBreakdown {
	return models.OTPBreakdown{
		RouteID: routeID,
		Day:     day,
		Scope:   scope,
		Key:     key,
		OnTime:  stats.OnTime,
		Early:   stats.Early,
		Late:    stats.Late,
		OTPPct:  round2(stats.OnTimePct()),
	}
}

// speedValues prefers shape-projected derived speeds; when the feed has no
// usable geometry it falls back to the reported speed field of the raw
// samples.
func speedValues(speeds []models.SpeedSample, samples []models.PositionSample) []float64 {
	if len(speeds) > 0 {
		values := make([]float64, len(speeds))
		for i, s := range speeds {
			values[i] = s.SpeedMPH
		}
		return values
	}

	var values []float64
	for _, s := range samples {
		if s.SpeedMPH != nil && *s.SpeedMPH >= 0 {
			values = append(values, *s.SpeedMPH)
		}
	}
	return values
}

func avgSpeedMPH(speeds []models.SpeedSample, samples []models.PositionSample) *float64 {
	values := speedValues(speeds, samples)
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return models.Float64Ptr(sum / float64(len(values)))
}

func medianSpeedMPH(speeds []models.SpeedSample, samples []models.PositionSample) *float64 {
	values := speedValues(speeds, samples)
	if len(values) == 0 {
		return nil
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return models.Float64Ptr(values[mid])
	}
	return models.Float64Ptr((values[mid-1] + values[mid]) / 2)
}

func countUniqueVehicles(samples []models.PositionSample) int64 {
	seen := make(map[string]bool)
	for _, s := range samples {
		seen[s.VehicleID] = true
	}
	return int64(len(seen))
}

func round2(v *float64) *float64 {
	return roundTo(v, 100)
}

func round3(v *float64) *float64 {
	return roundTo(v, 1000)
}

func roundTo(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float64Ptr(math.Round(*v*factor) / factor)
}
