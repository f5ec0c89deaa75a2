package aggregate

import (
	"sort"

	"busmetrics.transitwatch.org/internal/models"
)

// BuildRollingSummary folds a trailing window of daily rows into one
// summary row. It is a pure function of its inputs: given the same daily
// rows it always produces the same summary, so a corrupted summary table
// can be rebuilt from scratch at any time. Days with a nil metric simply
// don't contribute to that metric's average.
func BuildRollingSummary(routeID, dayStart, dayEnd string, windowDays int, window []models.DailyMetric) models.RollingSummary {
	sorted := make([]models.DailyMetric, len(window))
	copy(sorted, window)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Day < sorted[j].Day })

	summary := models.RollingSummary{
		RouteID:      routeID,
		DaysAnalyzed: int64(windowDays),
		DayStart:     dayStart,
		DayEnd:       dayEnd,
	}

	summary.OTPPct = round2(avgPresent(sorted, func(m models.DailyMetric) *float64 { return m.OTPPct }))
	summary.EarlyPct = round2(avgPresent(sorted, func(m models.DailyMetric) *float64 { return m.EarlyPct }))
	summary.LatePct = round2(avgPresent(sorted, func(m models.DailyMetric) *float64 { return m.LatePct }))
	summary.AvgHeadwayMinutes = round2(avgPresent(sorted, func(m models.DailyMetric) *float64 { return m.AvgHeadwayMinutes }))
	summary.AvgSpeedMPH = round2(avgPresent(sorted, func(m models.DailyMetric) *float64 { return m.AvgSpeedMPH }))

	for _, m := range sorted {
		summary.TotalArrivals += m.ArrivalEvents
		summary.UniqueVehicles += m.UniqueVehicles
	}

	return summary
}

func avgPresent(window []models.DailyMetric, get func(models.DailyMetric) *float64) *float64 {
	var sum float64
	var n int
	for _, m := range window {
		if v := get(m); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return models.Float64Ptr(sum / float64(n))
}
