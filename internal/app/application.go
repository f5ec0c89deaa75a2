package app

import (
	"log/slog"

	"busmetrics.transitwatch.org/internal/aggregate"
	"busmetrics.transitwatch.org/internal/appconf"
	"busmetrics.transitwatch.org/internal/schedule"
	"busmetrics.transitwatch.org/metricsdb"
)

// Application holds the dependencies for the aggregation pipeline: the
// configuration, a logger, the metrics store, and the components built on
// top of it.
type Application struct {
	Config     Config
	Logger     *slog.Logger
	MetricsDB  *metricsdb.Client
	Schedule   *schedule.Manager
	Aggregator *aggregate.Aggregator
}

// Config holds all the configuration settings for our Application, read
// from command-line flags and the environment when the run starts.
type Config struct {
	Env     appconf.Environment
	DBPath  string
	GtfsURL string
}

// NewApplication wires the pipeline components on top of an opened metrics
// store.
func NewApplication(cfg Config, logger *slog.Logger, db *metricsdb.Client) *Application {
	scheduleManager := schedule.NewManager(db)
	return &Application{
		Config:     cfg,
		Logger:     logger,
		MetricsDB:  db,
		Schedule:   scheduleManager,
		Aggregator: aggregate.New(db, scheduleManager, logger),
	}
}
