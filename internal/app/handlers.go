package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"tracker.redline.org/internal/report"
	"tracker.redline.org/internal/utils"
)

// HealthStatus defines the structure of the JSON response returned by the
// application's health check endpoint (/v1/healthcheck).
//
// The application is considered ready once a snapshot has been published.
// LastRefresh is the publication time of that snapshot and LastError the most
// recent cycle failure, if any. VehiclePositionsAt is the time of the last good
// GTFS-RT VehiclePositions fetch.
type HealthStatus struct {
	Status      string     `json:"status"`
	Environment string     `json:"environment"`
	Version     string     `json:"version"`
	RouteID     string     `json:"route_id"`
	StopID      string     `json:"stop_id"`
	Ready       bool       `json:"ready"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	LastError   string     `json:"last_error,omitempty"`

	VehiclePositionsAt *time.Time `json:"vehicle_positions_at,omitempty"`
}

// healthcheckHandler responds with a JSON representation of the application's health status.
// It answers 500 until the first snapshot is published.
func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	tracker := app.ConfigService.Config.GetTracker()
	snap := app.Store.Get()

	status := HealthStatus{
		Status:      "available",
		Environment: app.ConfigService.Config.Env,
		Version:     app.Version,
		RouteID:     tracker.RouteID,
		StopID:      tracker.StopID,
		Ready:       snap != nil,
	}
	if snap != nil {
		at := app.Store.PublishedAt()
		status.LastRefresh = &at
	}
	if err := app.Store.LastError(); err != nil {
		status.LastError = err.Error()
	}
	if app.GtfsService != nil {
		if _, at, ok := app.GtfsService.RealtimeStore.Get(); ok {
			status.VehiclePositionsAt = &at
		}
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusInternalServerError
	}
	app.writeJSON(w, r, code, status)
}

func (app *Application) boardHandler(w http.ResponseWriter, r *http.Request) {
	snap := app.Store.Get()
	if snap == nil {
		app.notReady(w, r)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newBoardView(snap, app.Location))
}

func (app *Application) mapHandler(w http.ResponseWriter, r *http.Request) {
	snap := app.Store.Get()
	if snap == nil {
		app.notReady(w, r)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newMapView(snap, app.Location))
}

func (app *Application) commuteHandler(w http.ResponseWriter, r *http.Request) {
	snap := app.Store.Get()
	if snap == nil {
		app.notReady(w, r)
		return
	}
	tracker := app.ConfigService.Config.GetTracker()
	app.writeJSON(w, r, http.StatusOK, newCommuteView(snap, tracker.Commute.DestinationStopID, app.Location))
}

// snapshotHandler serves the published snapshot as is, with UTC times.
func (app *Application) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	snap := app.Store.Get()
	if snap == nil {
		app.notReady(w, r)
		return
	}
	app.writeJSON(w, r, http.StatusOK, snap)
}

func (app *Application) notReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "30")
	app.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
		"error": "no snapshot has been published yet",
	})
}

func (app *Application) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(body, '\n'))
}

func (app *Application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.Logger.Error("Failed to write response", "path", r.URL.Path, "error", err)
	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags:  utils.MakeMap("path", r.URL.Path),
		Level: sentry.LevelError,
	})
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
