package models

import "time"

// Classification buckets a schedule deviation. The thresholds are a fixed
// policy: stricter than many agency standards, and deliberately not
// configurable because downstream grading depends on a stable definition.
type Classification string

const (
	ClassEarly  Classification = "early"
	ClassOnTime Classification = "on_time"
	ClassLate   Classification = "late"

	// EarlyThresholdSeconds and LateThresholdSeconds bound the on_time band.
	// Both boundaries are inclusive: a deviation of exactly -60 or +300
	// seconds is on_time.
	EarlyThresholdSeconds = -60
	LateThresholdSeconds  = 300
)

// Classify buckets a deviation in seconds (negative = early).
func Classify(deviationSeconds float64) Classification {
	if deviationSeconds < EarlyThresholdSeconds {
		return ClassEarly
	}
	if deviationSeconds > LateThresholdSeconds {
		return ClassLate
	}
	return ClassOnTime
}

// TimePeriod is a fixed time-of-day bucket. Events are bucketed by their
// scheduled time, not the observed time, so lateness cannot push an event
// across a bucket boundary.
type TimePeriod string

const (
	PeriodAMPeak  TimePeriod = "am_peak" // 06:00-09:00
	PeriodMidday  TimePeriod = "midday"  // 09:00-15:00
	PeriodPMPeak  TimePeriod = "pm_peak" // 15:00-19:00
	PeriodEvening TimePeriod = "evening" // 19:00-24:00
	PeriodNight   TimePeriod = "night"   // 00:00-06:00
)

// PeriodForHour maps an hour of the service day to its bucket. Hours >= 24
// (GTFS after-midnight service) fold into the next day's early hours.
func PeriodForHour(hour int) TimePeriod {
	switch h := hour % 24; {
	case h >= 6 && h < 9:
		return PeriodAMPeak
	case h >= 9 && h < 15:
		return PeriodMidday
	case h >= 15 && h < 19:
		return PeriodPMPeak
	case h >= 19:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// ArrivalEvent is a stop-level schedule deviation observation derived from
// a matched position sample that passed within the at-stop radius.
type ArrivalEvent struct {
	RouteID          string
	StopID           string
	TripID           string
	VehicleID        string
	ScheduledSeconds int // seconds since service day start
	ObservedAt       time.Time
	DeviationSeconds float64
	Classification   Classification
	Period           TimePeriod
	StopDistance     float64 // meters at closest approach
}

// SpeedSample is an instantaneous speed derived from two consecutive
// positions of the same vehicle on the same trip, measured along the route
// shape rather than straight-line.
type SpeedSample struct {
	RouteID     string
	VehicleID   string
	TripID      string
	SpeedMPH    float64
	ElapsedSecs float64
	ObservedAt  time.Time
}

// HeadwayObservation is the gap between two successive vehicles passing the
// same reference stop, using each vehicle's closest-approach sample time as
// the pass-time proxy.
type HeadwayObservation struct {
	RouteID    string
	StopID     string
	VehicleA   string
	VehicleB   string
	GapSeconds float64
	Day        string
}

// DeviationCheck compares the vendor-reported deviation against the one
// computed from schedule matching. It is a supplementary cross-validation
// stream and never overrides the computed classification.
type DeviationCheck struct {
	RouteID         string
	TripID          string
	VehicleID       string
	ReportedSeconds float64
	ComputedSeconds float64
	DisagreeSeconds float64 // |reported - computed|
	ObservedAt      time.Time
}
