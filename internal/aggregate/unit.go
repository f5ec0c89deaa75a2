package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"busmetrics.transitwatch.org/internal/classify"
	"busmetrics.transitwatch.org/internal/headway"
	"busmetrics.transitwatch.org/internal/matching"
	"busmetrics.transitwatch.org/internal/models"
	"busmetrics.transitwatch.org/internal/schedule"
	"busmetrics.transitwatch.org/internal/stopindex"
)

// unitStage names the states of the per-unit state machine. Transitions are
// sequential; a failure at any stage terminates only this unit.
type unitStage string

const (
	stagePending     unitStage = "pending"
	stageMatching    unitStage = "matching"
	stageClassifying unitStage = "classifying"
	stageAggregating unitStage = "aggregating"
	stagePersisted   unitStage = "persisted"
)

const persistRetries = 3

// processUnit runs one (route, day) job to a terminal report. All
// computation happens on immutable inputs; the only write is the final
// transactional persist, so aborting at any earlier point is side-effect
// free.
func (a *Aggregator) processUnit(ctx context.Context, u unit, params Params) models.UnitReport {
	day := u.dayStart.Format(models.DayFormat)
	report := models.UnitReport{RouteID: u.routeID, Day: day}

	if params.UnitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.UnitTimeout)
		defer cancel()
	}

	stage := stagePending

	fail := func(reason string) models.UnitReport {
		report.Status = models.UnitFailed
		report.Reason = fmt.Sprintf("%s (stage: %s)", reason, stage)
		return report
	}

	if !params.Recalculate {
		exists, err := a.db.HasDailyMetric(ctx, u.routeID, day)
		if err != nil {
			return fail(err.Error())
		}
		if exists {
			report.Status = models.UnitSkipped
			report.Reason = "already_computed"
			return report
		}
	}

	// Matching
	stage = stageMatching

	ref, err := a.schedule.LoadRoute(ctx, u.routeID)
	if errors.Is(err, schedule.ErrNoSchedule) {
		return fail("no_schedule")
	}
	if err != nil {
		return fail(err.Error())
	}

	idx, err := stopindex.Build(ref)
	if err != nil {
		return fail("no_stops")
	}

	samples, err := a.db.ListPositionsForRouteDay(ctx, u.routeID, u.dayStart)
	if err != nil {
		return fail(err.Error())
	}
	report.SamplesSeen = int64(len(samples))

	if len(samples) == 0 {
		report.Status = models.UnitSkipped
		report.Reason = "no_samples"
		return report
	}
	if len(samples) < params.MinSamples {
		report.Status = models.UnitSkipped
		report.Reason = "insufficient_data"
		return report
	}

	matcher := matching.NewMatcher(ref, idx, u.dayStart)
	matches := make([]models.MatchResult, 0, len(samples))
	for _, s := range samples {
		mr := matcher.Match(s)
		if !mr.Unmatched {
			report.SamplesMatched++
		}
		matches = append(matches, mr)
	}

	if err := ctx.Err(); err != nil {
		return fail("canceled")
	}

	// Classifying
	stage = stageClassifying

	classifier := classify.NewClassifier(ref, u.dayStart)
	derived := classifier.Classify(matches)
	report.EventsProduced = int64(len(derived.Arrivals))

	if err := ctx.Err(); err != nil {
		return fail("canceled")
	}

	// Aggregating
	stage = stageAggregating

	headwayStats := headway.Estimate(u.routeID, day, derived.Arrivals)
	metric := buildDailyMetric(u.routeID, day, samples, report.SamplesMatched, derived, headwayStats)
	breakdowns := buildOTPBreakdowns(u.routeID, day, derived.Arrivals)

	windowStart := u.dayStart.AddDate(0, 0, -(params.WindowDays - 1)).Format(models.DayFormat)

	// Persisted
	stage = stagePersisted

	// The rolling window is re-read inside the persistence transaction, so
	// the summary covers every daily row committed before this one.
	persist := func() error {
		return a.db.PersistRouteDay(ctx, metric, breakdowns, windowStart, day,
			func(window []models.DailyMetric) models.RollingSummary {
				return BuildRollingSummary(u.routeID, windowStart, day, params.WindowDays, window)
			})
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), persistRetries), ctx)
	if err := backoff.Retry(persist, policy); err != nil {
		stage = stageAggregating // the write never landed
		return fail(fmt.Sprintf("persist: %v", err))
	}

	report.Status = models.UnitPersisted
	return report
}
