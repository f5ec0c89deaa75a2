package matching

import "math"

const (
	// CandidateToleranceSeconds widens a trip's scheduled span when
	// enumerating fallback candidates, covering polling jitter.
	CandidateToleranceSeconds = 900 // 15 minutes

	// MaxCandidateDistanceMeters is where the distance term of the score
	// reaches zero.
	MaxCandidateDistanceMeters = 500.0

	// MinConfidence is the acceptance threshold for fallback matches.
	// A score of exactly MinConfidence is rejected; anything above it is
	// accepted.
	MinConfidence = 0.3

	// distanceWeight and timeWeight combine the two plausibility terms.
	// Position agreement is weighted higher because polled timestamps carry
	// up to a full polling interval of jitter.
	distanceWeight = 0.6
	timeWeight     = 0.4
)

// Score combines a candidate trip's positional and temporal plausibility
// into a confidence in [0,1]. distanceMeters is the great-circle distance
// from the sample to the trip's expected position at the sample time;
// timeDeltaSeconds is how far the sample's implied schedule offset is from
// the trip's. Both terms decay linearly to zero at their respective
// maximums. The function is pure and monotonic: shrinking either input
// never lowers the score.
func Score(distanceMeters, timeDeltaSeconds float64) float64 {
	distTerm := 1.0 - distanceMeters/MaxCandidateDistanceMeters
	distTerm = math.Max(0, math.Min(1, distTerm))

	timeTerm := 1.0 - timeDeltaSeconds/CandidateToleranceSeconds
	timeTerm = math.Max(0, math.Min(1, timeTerm))

	return distanceWeight*distTerm + timeWeight*timeTerm
}
