package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"

	"tracker.redline.org/internal/middleware"
)

// Routes sets up the HTTP routing configuration for the application and returns the final http.Handler.
//
// Registered Routes:
//   - GET /v1/healthcheck: application health and readiness.
//   - GET /v1/board: alerts, departures and arrivals, times rendered in Eastern.
//   - GET /v1/map: enriched vehicles, line geometries and their bounding box.
//   - GET /v1/commute: trips from the tracked stop to the commute destination.
//   - GET /v1/snapshot: the raw published snapshot.
//   - GET /metrics: Prometheus exposition, cached for 10 seconds.
//
// The router is wrapped with Sentry and security header middleware.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/board", app.boardHandler)
	router.HandlerFunc(http.MethodGet, "/v1/map", app.mapHandler)
	router.HandlerFunc(http.MethodGet, "/v1/commute", app.commuteHandler)
	router.HandlerFunc(http.MethodGet, "/v1/snapshot", app.snapshotHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	handler := middleware.SentryMiddleware(router)
	return middleware.SecurityHeaders(handler)
}
