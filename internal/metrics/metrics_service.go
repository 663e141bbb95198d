package metrics

import (
	"log/slog"
	"time"

	"tracker.redline.org/internal/geo"
	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/pipeline"
)

// MaxPlausibleSpeed is the speed, in meters per second, above which a position update
// is treated as a jump rather than movement. Rapid transit tops out near 30 m/s.
const MaxPlausibleSpeed = 45.0

type MetricsService struct {
	VehicleLastSeen *VehicleLastSeen
	Logger          *slog.Logger
}

func NewMetricsService(vehicleLastSeen *VehicleLastSeen, logger *slog.Logger) *MetricsService {
	return &MetricsService{
		VehicleLastSeen: vehicleLastSeen,
		Logger:          logger,
	}
}

// RecordFetch sets the fetch status of a feed.
func (ms *MetricsService) RecordFetch(feed string, err error, at time.Time) {
	if err != nil {
		FeedFetchStatus.WithLabelValues(feed).Set(0)
		return
	}
	FeedFetchStatus.WithLabelValues(feed).Set(1)
	FeedLastSuccess.WithLabelValues(feed).Set(float64(at.Unix()))
}

// RecordSnapshot exports the counts of a finished cycle.
func (ms *MetricsService) RecordSnapshot(snap *pipeline.Snapshot, took time.Duration) {
	route := snap.RouteID
	RefreshDuration.Observe(took.Seconds())
	VehiclesTracked.WithLabelValues(route).Set(float64(len(snap.Vehicles)))
	VehiclesCorrelated.WithLabelValues(route).Set(float64(snap.Correlated()))
	ActiveAlerts.WithLabelValues(route).Set(float64(snap.ActiveAlerts()))
	ArrivalsInWindow.WithLabelValues(route, "near_term").Set(float64(len(snap.NearTermArrivals)))
	ArrivalsInWindow.WithLabelValues(route, "future").Set(float64(len(snap.FutureArrivals)))

	for _, feed := range []string{pipeline.FeedAlerts, pipeline.FeedStopPredictions, pipeline.FeedRoutePredictions, pipeline.FeedVehicles} {
		SkippedRecords.WithLabelValues(feed).Set(float64(snap.Stats.Skipped[feed]))
	}
	UnresolvedReferences.Set(float64(snap.Stats.Unresolved))

	ms.RecordLines(snap.Lines)
	ms.TrackVehicleTelemetry(route, snap.Vehicles, snap.Now)
}

// RecordLines exports the trace count of every map line.
func (ms *MetricsService) RecordLines(lines []models.LineGeometry) {
	for _, line := range lines {
		traces := 0
		for _, r := range line.Routes {
			traces += len(r.Traces)
		}
		RouteTraces.WithLabelValues(line.Name).Set(float64(traces))
	}
}

// TrackVehicleTelemetry computes the speed of every vehicle seen in an earlier snapshot
// and counts implausible jumps. It returns the number of jumps found.
func (ms *MetricsService) TrackVehicleTelemetry(routeID string, vehicles []models.EnrichedVehicle, now time.Time) int {
	jumps := 0
	for _, v := range vehicles {
		if v.VehicleID == "" {
			continue
		}
		if prev, ok := ms.VehicleLastSeen.Get(routeID, v.VehicleID); ok {
			if elapsed := now.Sub(prev.Time).Seconds(); elapsed > 0 {
				speed := geo.HaversineDistance(prev.Lat, prev.Lon, v.Lat, v.Lon) / elapsed
				VehicleSpeedGauge.WithLabelValues(v.VehicleID, routeID).Set(speed)
				if speed > MaxPlausibleSpeed {
					jumps++
					VehicleImplausibleJumps.WithLabelValues(routeID).Inc()
					if ms.Logger != nil {
						ms.Logger.Warn("Vehicle position jumped", "route", routeID, "vehicle", v.VehicleID, "speed_mps", speed)
					}
				}
			}
		}
		ms.VehicleLastSeen.Set(routeID, v.VehicleID, LastSeen{Time: now, Lat: v.Lat, Lon: v.Lon})
	}
	return jumps
}
