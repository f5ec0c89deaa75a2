package models

// DayFormat is the canonical layout for service-day keys in persisted rows.
const DayFormat = "2006-01-02"

// DailyMetric is the per-route per-day aggregate row, keyed by
// (route_id, day) with replace semantics. Metric pointers are nil when the
// underlying data was insufficient: "metrics unavailable" is represented as
// null, never as a fabricated zero.
type DailyMetric struct {
	RouteID string
	Day     string

	OTPPct   *float64
	EarlyPct *float64
	LatePct  *float64

	AvgHeadwayMinutes    *float64
	MedianHeadwayMinutes *float64
	HeadwayStdDevMinutes *float64
	HeadwayCV            *float64

	AvgSpeedMPH    *float64
	MedianSpeedMPH *float64

	MatchedSamples int64
	TotalSamples   int64
	UniqueVehicles int64
	ArrivalEvents  int64
}

// Breakdown scopes group a day's arrival events below the line level.
const (
	BreakdownScopeStop   = "stop"
	BreakdownScopePeriod = "period"
)

// OTPBreakdown is one stop-level or time-period grouping of a day's arrival
// events, persisted alongside the line-level DailyMetric with the same
// replace semantics.
type OTPBreakdown struct {
	RouteID string
	Day     string
	Scope   string
	Key     string
	OnTime  int64
	Early   int64
	Late    int64
	OTPPct  *float64
}

// RollingSummary is the trailing-window aggregate for one route. It is a
// pure function of the route's DailyMetric rows and is overwritten on every
// run, so it can always be rebuilt from scratch.
type RollingSummary struct {
	RouteID      string
	DaysAnalyzed int64
	DayStart     string
	DayEnd       string

	OTPPct            *float64
	EarlyPct          *float64
	LatePct           *float64
	AvgHeadwayMinutes *float64
	AvgSpeedMPH       *float64

	TotalArrivals  int64
	UniqueVehicles int64
}

// Float64Ptr returns a pointer to v. Convenience for building metric rows.
func Float64Ptr(v float64) *float64 {
	return &v
}
