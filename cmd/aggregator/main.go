package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"busmetrics.transitwatch.org/internal/aggregate"
	"busmetrics.transitwatch.org/internal/app"
	"busmetrics.transitwatch.org/internal/appconf"
	"busmetrics.transitwatch.org/internal/logging"
	"busmetrics.transitwatch.org/internal/models"
	"busmetrics.transitwatch.org/metricsdb"
)

// config holds the command-line settings for one aggregation run.
type config struct {
	env         string
	dbPath      string
	gtfsURL     string
	day         string
	days        int
	route       string
	recalculate bool
	window      int
	workers     int
	unitTimeout time.Duration
}

func main() {
	// Missing .env is fine; flags and process env cover everything.
	_ = godotenv.Load()

	var cfg config

	flag.StringVar(&cfg.env, "env", envOr("BUSMETRICS_ENV", "development"), "Environment (development|test|production)")
	flag.StringVar(&cfg.dbPath, "db", envOr("BUSMETRICS_DB", "busmetrics.db"), "Path to the SQLite metrics database")
	flag.StringVar(&cfg.gtfsURL, "gtfs-url", os.Getenv("BUSMETRICS_GTFS_URL"), "Optional GTFS static zip (URL or file) to refresh the schedule reference before the run")
	flag.StringVar(&cfg.day, "day", "", "Single service day to process (YYYY-MM-DD); overrides -days")
	flag.IntVar(&cfg.days, "days", 7, "Process the last N days ending yesterday")
	flag.StringVar(&cfg.route, "route", "", "Restrict the run to one route ID")
	flag.BoolVar(&cfg.recalculate, "recalculate", false, "Overwrite existing daily metrics instead of skipping them")
	flag.IntVar(&cfg.window, "window", aggregate.DefaultWindowDays, "Trailing window in days for rolling summaries")
	flag.IntVar(&cfg.workers, "workers", 4, "Concurrent route/day workers")
	flag.DurationVar(&cfg.unitTimeout, "unit-timeout", 0, "Wall-clock budget per route/day unit (0 = unlimited)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(cfg, logger); err != nil {
		logger.Error("aggregation run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	days, err := planDays(cfg)
	if err != nil {
		return err
	}

	dbConfig := metricsdb.NewConfig(cfg.dbPath, appconf.EnvFlagToEnvironment(cfg.env), false)
	db, err := metricsdb.NewClient(dbConfig)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(db, logger, "close_metrics_db")

	application := app.NewApplication(app.Config{
		Env:     appconf.EnvFlagToEnvironment(cfg.env),
		DBPath:  cfg.dbPath,
		GtfsURL: cfg.gtfsURL,
	}, logger, db)

	if cfg.gtfsURL != "" {
		logger.Info("refreshing schedule reference", "source", cfg.gtfsURL)
		if err := db.LoadSchedule(ctx, cfg.gtfsURL); err != nil {
			return logging.ReplaceLogFatal(logger, "schedule refresh failed", err)
		}
	}

	report, err := application.Aggregator.Run(ctx, aggregate.Params{
		Days:        days,
		RouteFilter: cfg.route,
		Recalculate: cfg.recalculate,
		WindowDays:  cfg.window,
		Workers:     cfg.workers,
		UnitTimeout: cfg.unitTimeout,
	})
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

// planDays resolves the service days for the run: a single -day, or the
// last -days days ending yesterday (today's data is still being collected).
func planDays(cfg config) ([]time.Time, error) {
	if cfg.day != "" {
		day, err := time.Parse(models.DayFormat, cfg.day)
		if err != nil {
			return nil, fmt.Errorf("invalid -day %q: %w", cfg.day, err)
		}
		return []time.Time{day.UTC()}, nil
	}

	if cfg.days <= 0 {
		return nil, fmt.Errorf("-days must be positive, got %d", cfg.days)
	}

	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	days := make([]time.Time, 0, cfg.days)
	for i := cfg.days - 1; i >= 0; i-- {
		days = append(days, yesterday.AddDate(0, 0, -i))
	}
	return days, nil
}

func printReport(report models.RunReport) {
	for _, u := range report.Units {
		line := fmt.Sprintf("%-8s %s  %-9s seen=%d matched=%d events=%d",
			u.RouteID, u.Day, u.Status, u.SamplesSeen, u.SamplesMatched, u.EventsProduced)
		if u.Reason != "" {
			line += "  reason=" + u.Reason
		}
		fmt.Println(line)
	}

	persisted, skipped, failed := report.Counts()
	fmt.Printf("done: %d persisted, %d skipped, %d failed\n", persisted, skipped, failed)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
