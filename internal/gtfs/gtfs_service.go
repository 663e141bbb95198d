package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	remoteGtfs "github.com/jamespfennell/gtfs"

	"tracker.redline.org/internal/config"
	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/report"
)

type GtfsService struct {
	RealtimeStore *RealtimeStore
	Logger        *slog.Logger
	Client        *http.Client
	MaxRetries    int
}

func NewGtfsService(realtimeStore *RealtimeStore, logger *slog.Logger, client *http.Client) *GtfsService {
	return &GtfsService{
		RealtimeStore: realtimeStore,
		Logger:        logger,
		Client:        client,
		MaxRetries:    2,
	}
}

// FetchVehiclePositions downloads and parses a GTFS-RT VehiclePositions feed and
// stores the vehicles serving routeID.
func (gs *GtfsService) FetchVehiclePositions(ctx context.Context, url, routeID string) ([]models.VehicleSnapshot, error) {
	vehicles, dropped, err := fetchVehiclePositions(ctx, gs.Client, url, routeID, gs.MaxRetries)
	if err != nil {
		report.ReportFeedError("vehicle_positions", url, err)
		return nil, err
	}
	if dropped > 0 {
		gs.Logger.Debug("Dropped GTFS-RT vehicles", "route", routeID, "dropped", dropped)
	}
	gs.RealtimeStore.Set(vehicles, time.Now().UTC())
	return vehicles, nil
}

// LastVehiclePositions returns the stored vehicles serving routeID when the last
// successful fetch is no older than maxAge.
func (gs *GtfsService) LastVehiclePositions(routeID string, maxAge time.Duration) ([]models.VehicleSnapshot, bool) {
	stored, fetchedAt, ok := gs.RealtimeStore.Get()
	if !ok || time.Since(fetchedAt) > maxAge {
		return nil, false
	}
	vehicles := []models.VehicleSnapshot{}
	for _, v := range stored {
		if v.RouteID == routeID {
			vehicles = append(vehicles, v)
		}
	}
	return vehicles, true
}

func fetchVehiclePositions(ctx context.Context, client *http.Client, url, routeID string, maxRetries int) ([]models.VehicleSnapshot, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/x-protobuf")

	resp, err := config.DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch GTFS-RT feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("GTFS-RT feed returned status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read GTFS-RT feed: %w", err)
	}

	rt, err := remoteGtfs.ParseRealtime(data, &remoteGtfs.ParseRealtimeOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse GTFS-RT feed: %w", err)
	}
	vehicles, dropped := VehicleSnapshots(rt, routeID)
	return vehicles, dropped, nil
}
