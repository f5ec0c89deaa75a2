package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyOnTimeBand(t *testing.T) {
	// Both boundaries are inclusive.
	assert.Equal(t, ClassOnTime, Classify(-60))
	assert.Equal(t, ClassOnTime, Classify(300))
	assert.Equal(t, ClassOnTime, Classify(0))
	assert.Equal(t, ClassOnTime, Classify(-59.9))
	assert.Equal(t, ClassOnTime, Classify(299.9))
}

func TestClassifyEarly(t *testing.T) {
	assert.Equal(t, ClassEarly, Classify(-61))
	assert.Equal(t, ClassEarly, Classify(-60.1))
	assert.Equal(t, ClassEarly, Classify(-3600))
}

func TestClassifyLate(t *testing.T) {
	assert.Equal(t, ClassLate, Classify(301))
	assert.Equal(t, ClassLate, Classify(300.1))
	assert.Equal(t, ClassLate, Classify(7200))
}

func TestPeriodForHour(t *testing.T) {
	assert.Equal(t, PeriodNight, PeriodForHour(0))
	assert.Equal(t, PeriodNight, PeriodForHour(5))
	assert.Equal(t, PeriodAMPeak, PeriodForHour(6))
	assert.Equal(t, PeriodAMPeak, PeriodForHour(8))
	assert.Equal(t, PeriodMidday, PeriodForHour(9))
	assert.Equal(t, PeriodMidday, PeriodForHour(14))
	assert.Equal(t, PeriodPMPeak, PeriodForHour(15))
	assert.Equal(t, PeriodPMPeak, PeriodForHour(18))
	assert.Equal(t, PeriodEvening, PeriodForHour(19))
	assert.Equal(t, PeriodEvening, PeriodForHour(23))
}

func TestPeriodForHourFoldsAfterMidnightService(t *testing.T) {
	// GTFS after-midnight hours (24+) bucket as the next day's early hours.
	assert.Equal(t, PeriodNight, PeriodForHour(25))
	assert.Equal(t, PeriodAMPeak, PeriodForHour(30))
}
