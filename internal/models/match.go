package models

// UnmatchedReason classifies why a position sample could not be attributed
// to a scheduled trip. Unmatched samples stay in total-sample counts but are
// excluded from accuracy metrics.
type UnmatchedReason string

const (
	UnmatchedLowConfidence   UnmatchedReason = "low_confidence"
	UnmatchedNoCandidates    UnmatchedReason = "no_candidate_trips"
	UnmatchedInvalidPosition UnmatchedReason = "invalid_position"
)

// MatchResult attributes a position sample to a scheduled trip and the
// nearest scheduled stop. Results are recomputed on every run and never
// persisted as source of truth.
type MatchResult struct {
	Sample           PositionSample
	TripID           string
	StopID           string
	Confidence       float64
	DeviationSeconds float64
	StopDistance     float64 // meters from sample to matched stop
	// ScheduledSeconds is the scheduled arrival at the matched stop in
	// seconds since service day start, or -1 when the matched trip does not
	// serve that stop.
	ScheduledSeconds int

	// Unmatched is set when no trip could be attributed; the fields above
	// are zero-valued in that case.
	Unmatched       bool
	UnmatchedReason UnmatchedReason
}

// NewUnmatched returns a MatchResult marking the sample as unattributable.
func NewUnmatched(sample PositionSample, reason UnmatchedReason) MatchResult {
	return MatchResult{Sample: sample, ScheduledSeconds: -1, Unmatched: true, UnmatchedReason: reason}
}
