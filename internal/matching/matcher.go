package matching

import (
	"math"
	"time"

	"busmetrics.transitwatch.org/internal/models"
	"busmetrics.transitwatch.org/internal/schedule"
	"busmetrics.transitwatch.org/internal/stopindex"
)

// Matcher attributes raw position samples to scheduled trips for a single
// route and service day. It is read-only after construction, so one matcher
// may serve every sample of a unit.
type Matcher struct {
	ref      *schedule.RouteReference
	idx      *stopindex.Index
	dayStart time.Time
}

func NewMatcher(ref *schedule.RouteReference, idx *stopindex.Index, dayStart time.Time) *Matcher {
	return &Matcher{ref: ref, idx: idx, dayStart: dayStart}
}

// Match attributes one sample. The fast path trusts a resolvable trip hint
// outright: roughly nine in ten samples carry a valid hint, and
// re-verifying plausibility there costs more than it ever corrects. The
// fallback scores candidate trips by position and time plausibility.
func (m *Matcher) Match(sample models.PositionSample) models.MatchResult {
	if !sample.HasValidCoordinates() {
		return models.NewUnmatched(sample, models.UnmatchedInvalidPosition)
	}

	offset := int(sample.ObservedAt.Sub(m.dayStart) / time.Second)

	// Fast path: the hint resolves on this route.
	if trip, ok := m.ref.Trips[sample.TripIDHint]; ok && trip.RouteID == sample.RouteID {
		return m.buildResult(sample, trip, offset, 1.0)
	}

	best, score := m.bestCandidate(sample, offset)
	if best == nil {
		return models.NewUnmatched(sample, models.UnmatchedNoCandidates)
	}
	if score <= MinConfidence {
		return models.NewUnmatched(sample, models.UnmatchedLowConfidence)
	}

	return m.buildResult(sample, best, offset, score)
}

// bestCandidate scores every trip scheduled to be in service around the
// sample time and returns the highest-scoring one. Ties are broken by the
// distance to each candidate's next unvisited stop, then by trip ID via the
// deterministic iteration order of TripList.
func (m *Matcher) bestCandidate(sample models.PositionSample, offset int) (*schedule.TripSchedule, float64) {
	point := sample.Point()

	var best *schedule.TripSchedule
	bestScore := -1.0
	bestNextStopDist := math.Inf(1)

	for _, trip := range m.ref.TripList {
		if !trip.InServiceWindow(offset, CandidateToleranceSeconds) {
			continue
		}

		expected := expectedPosition(trip, offset)
		dist := expected.Distance(point)
		implied := impliedOffset(trip, point)
		timeDelta := math.Abs(float64(offset - implied))

		score := Score(dist, timeDelta)
		if score < bestScore {
			continue
		}

		nextDist := nextStopDistance(trip, point, offset)
		if score > bestScore || nextDist < bestNextStopDist {
			best = trip
			bestScore = score
			bestNextStopDist = nextDist
		}
	}

	return best, bestScore
}

func (m *Matcher) buildResult(sample models.PositionSample, trip *schedule.TripSchedule, offset int, confidence float64) models.MatchResult {
	result := models.MatchResult{
		Sample:           sample,
		TripID:           trip.ID,
		Confidence:       confidence,
		ScheduledSeconds: -1,
	}

	stopID, meters, ok := m.idx.Nearest(sample.Point())
	if !ok {
		return result
	}
	result.StopID = stopID
	result.StopDistance = meters

	if arrival, served := trip.ArrivalAtStop(stopID); served {
		result.ScheduledSeconds = arrival
		result.DeviationSeconds = float64(offset - arrival)
	}

	return result
}

// expectedPosition estimates where a trip should be at the given schedule
// offset by linear interpolation over scheduled stop offsets between the
// bracketing stops' coordinates. Before the first stop or after the last,
// the trip is pinned to that terminal.
func expectedPosition(trip *schedule.TripSchedule, offset int) models.CoordinatePoint {
	sts := trip.StopTimes

	if offset <= sts[0].ArrivalSeconds {
		return sts[0].Point
	}
	if offset >= sts[len(sts)-1].ArrivalSeconds {
		return sts[len(sts)-1].Point
	}

	for i := 0; i < len(sts)-1; i++ {
		a, b := sts[i], sts[i+1]
		if offset < b.ArrivalSeconds {
			frac := float64(offset-a.ArrivalSeconds) / float64(b.ArrivalSeconds-a.ArrivalSeconds)
			return a.Point.Interpolate(b.Point, frac)
		}
	}

	return sts[len(sts)-1].Point
}

// impliedOffset returns the schedule offset the sample's location suggests:
// the scheduled arrival at the trip stop nearest to the sample.
func impliedOffset(trip *schedule.TripSchedule, point models.CoordinatePoint) int {
	best := math.Inf(1)
	implied := trip.StopTimes[0].ArrivalSeconds

	for _, st := range trip.StopTimes {
		d := st.Point.Distance(point)
		if d < best {
			best = d
			implied = st.ArrivalSeconds
		}
	}
	return implied
}

// nextStopDistance returns the distance from the sample to the trip's next
// unvisited stop at the given offset. Used only as a tie-break.
func nextStopDistance(trip *schedule.TripSchedule, point models.CoordinatePoint, offset int) float64 {
	for _, st := range trip.StopTimes {
		if st.ArrivalSeconds >= offset {
			return st.Point.Distance(point)
		}
	}
	last := trip.StopTimes[len(trip.StopTimes)-1]
	return last.Point.Distance(point)
}
