package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"busmetrics.transitwatch.org/internal/logging"
	"busmetrics.transitwatch.org/internal/models"
	"busmetrics.transitwatch.org/internal/schedule"
	"busmetrics.transitwatch.org/metricsdb"
)

const (
	// DefaultWindowDays is the trailing window folded into each route's
	// rolling summary.
	DefaultWindowDays = 7

	// DefaultMinSamples is the minimum raw sample count for a unit to be
	// worth aggregating; below it, metrics stay absent rather than noisy.
	DefaultMinSamples = 50

	defaultWorkers = 4
)

// Params controls one aggregation run.
type Params struct {
	// Days are the UTC service days to process.
	Days []time.Time
	// RouteFilter restricts the run to one route when non-empty.
	RouteFilter string
	// Recalculate overwrites existing daily rows; without it,
	// already-computed units are skipped.
	Recalculate bool
	// WindowDays is the rolling summary window (default 7).
	WindowDays int
	// Workers bounds the number of concurrent unit workers.
	Workers int
	// UnitTimeout aborts a single unit's computation when positive. Aborts
	// are side-effect free because the unit's write is deferred to the end.
	UnitTimeout time.Duration
	// MinSamples overrides DefaultMinSamples when positive.
	MinSamples int
}

// Aggregator drives matching, classification, and headway/speed/OTP
// summarization for each (route, day) unit and owns all writes to the
// persisted metrics tables.
type Aggregator struct {
	db       *metricsdb.Client
	schedule *schedule.Manager
	logger   *slog.Logger
}

func New(db *metricsdb.Client, scheduleManager *schedule.Manager, logger *slog.Logger) *Aggregator {
	return &Aggregator{db: db, schedule: scheduleManager, logger: logger}
}

// unit is one independent (route, day) work item.
type unit struct {
	routeID  string
	dayStart time.Time
}

// Run processes every (route, day) unit in the requested range. Units of
// different routes are independent and run concurrently; units of one route
// all touch that route's summary row, so they ride the same worker in day
// order and the summary ends at the route's latest day. A run with some
// failed units is a partial success; the error return is reserved for being
// unable to plan the run at all.
func (a *Aggregator) Run(ctx context.Context, params Params) (models.RunReport, error) {
	if params.WindowDays <= 0 {
		params.WindowDays = DefaultWindowDays
	}
	if params.Workers <= 0 {
		params.Workers = defaultWorkers
	}
	if params.MinSamples <= 0 {
		params.MinSamples = DefaultMinSamples
	}
	if len(params.Days) == 0 {
		return models.RunReport{}, fmt.Errorf("no days to process")
	}

	ctx = logging.WithLogger(ctx, a.logger)

	routeIDs, err := a.planRoutes(ctx, params)
	if err != nil {
		return models.RunReport{}, err
	}

	days := make([]time.Time, len(params.Days))
	copy(days, params.Days)
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	groups := make([][]unit, 0, len(routeIDs))
	for _, routeID := range routeIDs {
		group := make([]unit, 0, len(days))
		for _, day := range days {
			group = append(group, unit{routeID: routeID, dayStart: day.UTC().Truncate(24 * time.Hour)})
		}
		groups = append(groups, group)
	}

	logging.LogOperation(a.logger, "aggregation_run_started",
		slog.Int("routes", len(routeIDs)),
		slog.Int("days", len(days)),
		slog.Int("units", len(routeIDs)*len(days)),
		slog.Int("workers", params.Workers),
		slog.Bool("recalculate", params.Recalculate),
	)

	jobs := make(chan []unit)
	results := make(chan models.UnitReport)

	var wg sync.WaitGroup
	for i := 0; i < params.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range jobs {
				for _, u := range group {
					results <- a.processUnit(ctx, u, params)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, group := range groups {
			select {
			case jobs <- group:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var report models.RunReport
	for r := range results {
		logging.LogUnitOutcome(a.logger, r.RouteID, r.Day, string(r.Status), r.Reason,
			slog.Int64("samples_seen", r.SamplesSeen),
			slog.Int64("samples_matched", r.SamplesMatched),
			slog.Int64("events_produced", r.EventsProduced),
		)
		report.Units = append(report.Units, r)
	}

	// Workers finish in arbitrary order; report in (route, day) order.
	sort.Slice(report.Units, func(i, j int) bool {
		if report.Units[i].RouteID != report.Units[j].RouteID {
			return report.Units[i].RouteID < report.Units[j].RouteID
		}
		return report.Units[i].Day < report.Units[j].Day
	})

	persisted, skipped, failed := report.Counts()
	logging.LogOperation(a.logger, "aggregation_run_finished",
		slog.Int("persisted", persisted),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)

	return report, nil
}

// planRoutes resolves the set of routes for the run: the explicit filter
// when present, otherwise every route with at least one raw sample in the
// day range.
func (a *Aggregator) planRoutes(ctx context.Context, params Params) ([]string, error) {
	if params.RouteFilter != "" {
		return []string{params.RouteFilter}, nil
	}

	first, last := params.Days[0], params.Days[0]
	for _, d := range params.Days {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	routeIDs, err := a.db.ListRouteIDsWithPositions(ctx, first, last.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("error planning routes for run: %w", err)
	}
	return routeIDs, nil
}
