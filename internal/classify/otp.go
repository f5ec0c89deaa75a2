package classify

import "busmetrics.transitwatch.org/internal/models"

// OTPStats counts classified arrival events for one grouping.
type OTPStats struct {
	OnTime int64
	Early  int64
	Late   int64
}

// Total returns the number of events counted.
func (s OTPStats) Total() int64 {
	return s.OnTime + s.Early + s.Late
}

// OnTimePct returns the on-time percentage, or nil when no events were
// counted. Nil keeps "no data" distinct from a genuine zero.
func (s OTPStats) OnTimePct() *float64 {
	return s.pct(s.OnTime)
}

func (s OTPStats) EarlyPct() *float64 {
	return s.pct(s.Early)
}

func (s OTPStats) LatePct() *float64 {
	return s.pct(s.Late)
}

func (s OTPStats) pct(n int64) *float64 {
	total := s.Total()
	if total == 0 {
		return nil
	}
	return models.Float64Ptr(float64(n) / float64(total) * 100)
}

func (s *OTPStats) add(c models.Classification) {
	switch c {
	case models.ClassEarly:
		s.Early++
	case models.ClassLate:
		s.Late++
	default:
		s.OnTime++
	}
}

// LineOTP aggregates every arrival event of the day with equal weight,
// regardless of stop or time period.
func LineOTP(events []models.ArrivalEvent) OTPStats {
	var stats OTPStats
	for _, e := range events {
		stats.add(e.Classification)
	}
	return stats
}

// StopOTP groups arrival events by stop.
func StopOTP(events []models.ArrivalEvent) map[string]OTPStats {
	stats := make(map[string]OTPStats)
	for _, e := range events {
		s := stats[e.StopID]
		s.add(e.Classification)
		stats[e.StopID] = s
	}
	return stats
}

// PeriodOTP groups arrival events by their scheduled time-of-day bucket.
func PeriodOTP(events []models.ArrivalEvent) map[models.TimePeriod]OTPStats {
	stats := make(map[models.TimePeriod]OTPStats)
	for _, e := range events {
		s := stats[e.Period]
		s.add(e.Classification)
		stats[e.Period] = s
	}
	return stats
}
