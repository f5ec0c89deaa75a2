package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busmetrics.transitwatch.org/internal/models"
)

func event(stopID string, class models.Classification, period models.TimePeriod) models.ArrivalEvent {
	return models.ArrivalEvent{RouteID: "C51", StopID: stopID, Classification: class, Period: period}
}

func TestLineOTP(t *testing.T) {
	stats := LineOTP([]models.ArrivalEvent{
		event("S1", models.ClassOnTime, models.PeriodAMPeak),
		event("S1", models.ClassOnTime, models.PeriodAMPeak),
		event("S2", models.ClassEarly, models.PeriodMidday),
		event("S2", models.ClassLate, models.PeriodPMPeak),
	})

	assert.Equal(t, int64(4), stats.Total())
	require.NotNil(t, stats.OnTimePct())
	assert.InDelta(t, 50, *stats.OnTimePct(), 1e-9)
	assert.InDelta(t, 25, *stats.EarlyPct(), 1e-9)
	assert.InDelta(t, 25, *stats.LatePct(), 1e-9)
}

func TestLineOTPNoEvents(t *testing.T) {
	stats := LineOTP(nil)

	assert.Equal(t, int64(0), stats.Total())
	// No data is null, never a fabricated zero.
	assert.Nil(t, stats.OnTimePct())
	assert.Nil(t, stats.EarlyPct())
	assert.Nil(t, stats.LatePct())
}

func TestStopOTP(t *testing.T) {
	stats := StopOTP([]models.ArrivalEvent{
		event("S1", models.ClassOnTime, models.PeriodAMPeak),
		event("S1", models.ClassLate, models.PeriodAMPeak),
		event("S2", models.ClassEarly, models.PeriodMidday),
	})

	require.Len(t, stats, 2)
	assert.Equal(t, int64(1), stats["S1"].OnTime)
	assert.Equal(t, int64(1), stats["S1"].Late)
	assert.Equal(t, int64(1), stats["S2"].Early)
}

func TestPeriodOTP(t *testing.T) {
	stats := PeriodOTP([]models.ArrivalEvent{
		event("S1", models.ClassOnTime, models.PeriodAMPeak),
		event("S2", models.ClassOnTime, models.PeriodAMPeak),
		event("S3", models.ClassLate, models.PeriodEvening),
	})

	require.Len(t, stats, 2)
	assert.Equal(t, int64(2), stats[models.PeriodAMPeak].OnTime)
	assert.Equal(t, int64(1), stats[models.PeriodEvening].Late)
}
