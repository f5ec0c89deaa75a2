package models

// UnitStatus is the terminal state of one (route, day) aggregation job.
type UnitStatus string

const (
	UnitPersisted UnitStatus = "persisted"
	UnitSkipped   UnitStatus = "skipped"
	UnitFailed    UnitStatus = "failed"
)

// UnitReport is the per-(route, day) outcome returned to the invoking
// scheduler. A run with both failed and persisted units is a partial
// success, not a fatal error.
type UnitReport struct {
	RouteID string
	Day     string
	Status  UnitStatus
	Reason  string // populated for skipped and failed units

	SamplesSeen    int64
	SamplesMatched int64
	EventsProduced int64
}

// RunReport aggregates unit outcomes for one invocation.
type RunReport struct {
	Units []UnitReport
}

// Counts returns the number of persisted, skipped, and failed units.
func (r RunReport) Counts() (persisted, skipped, failed int) {
	for _, u := range r.Units {
		switch u.Status {
		case UnitPersisted:
			persisted++
		case UnitSkipped:
			skipped++
		case UnitFailed:
			failed++
		}
	}
	return persisted, skipped, failed
}
