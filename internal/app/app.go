package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tracker.redline.org/internal/config"
	"tracker.redline.org/internal/gtfs"
	"tracker.redline.org/internal/mbta"
	"tracker.redline.org/internal/metrics"
	"tracker.redline.org/internal/store"
	"tracker.redline.org/internal/utils"
)

// Application represents the main application structure.
// It holds references to the configuration service, the feed services, the refresher
// that publishes snapshots, and the store the HTTP handlers read from.
type Application struct {
	ConfigService  *config.ConfigService
	GtfsService    *gtfs.GtfsService
	MetricsService *metrics.MetricsService
	Refresher      *Refresher
	Store          *store.SnapshotStore
	Logger         *slog.Logger
	Version        string

	// Location is where board and map times are rendered.
	Location *time.Location
}

// New creates and wires all dependencies for the Application.
// Accepts config, logger, client, and version as arguments.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, version string) *Application {
	realtimeStore := gtfs.NewRealtimeStore()
	snapshotStore := store.NewSnapshotStore()
	vehicleLastSeen := metrics.NewVehicleLastSeen()

	configService := config.NewConfigService(logger, client, cfg)
	gtfsService := gtfs.NewGtfsService(realtimeStore, logger, client)
	metricsService := metrics.NewMetricsService(vehicleLastSeen, logger)
	mbtaClient := mbta.NewClient(cfg.BaseURL, cfg.APIKey, client, logger)

	refresher := NewRefresher(mbtaClient, gtfsService, cfg, snapshotStore, metricsService, logger)

	return &Application{
		ConfigService:  configService,
		GtfsService:    gtfsService,
		MetricsService: metricsService,
		Refresher:      refresher,
		Store:          snapshotStore,
		Logger:         logger,
		Version:        version,
		Location:       utils.FeedLocation,
	}
}

// Start launches the background loops. They stop when ctx is canceled.
func (app *Application) Start(ctx context.Context) {
	go app.Refresher.Run(ctx)
	go app.MetricsService.VehicleLastSeen.ClearRoutine(ctx, 5*time.Minute, 15*time.Minute)
}
