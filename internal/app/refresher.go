package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"tracker.redline.org/internal/config"
	"tracker.redline.org/internal/metrics"
	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/pipeline"
	"tracker.redline.org/internal/report"
	"tracker.redline.org/internal/store"
)

// feedVehiclePositions names the optional GTFS-RT vehicle source in metrics and backoff.
const feedVehiclePositions = "vehicle_positions"

// Fetcher is the MBTA API surface used by the refresher. *mbta.Client implements it.
type Fetcher interface {
	Alerts(ctx context.Context, routeID string) ([]byte, error)
	StopPredictions(ctx context.Context, routeID, stopID string) ([]byte, error)
	RoutePredictions(ctx context.Context, routeID string) ([]byte, error)
	Vehicles(ctx context.Context, routeID string) ([]byte, error)
	Shapes(ctx context.Context, routeID string) ([]byte, error)
}

// PositionsSource provides vehicles from a GTFS-RT VehiclePositions feed.
// *gtfs.GtfsService implements it.
type PositionsSource interface {
	FetchVehiclePositions(ctx context.Context, url, routeID string) ([]models.VehicleSnapshot, error)
	// LastVehiclePositions returns the vehicles of routeID from the last successful
	// fetch when it is no older than maxAge.
	LastVehiclePositions(routeID string, maxAge time.Duration) ([]models.VehicleSnapshot, bool)
}

// Refresher runs refresh cycles: fetch every feed concurrently, build a snapshot
// with pipeline.Run and publish it to the store.
//
// A feed that fails to fetch or parse is treated as empty for that cycle and put in
// backoff; the rest of the snapshot is still published. Map lines are rebuilt only
// when a route's shapes are fetched or the configured lines change.
type Refresher struct {
	Fetcher   Fetcher
	Positions PositionsSource
	Config    *config.Config
	Store     *store.SnapshotStore
	Metrics   *metrics.MetricsService
	Backoff   *config.BackoffStore
	Logger    *slog.Logger
	Now       func() time.Time

	mu       sync.Mutex
	shapes   map[string]shapeEntry
	lines    []models.LineGeometry
	linesKey string
}

// shapeEntry is the last good shapes payload of one route.
type shapeEntry struct {
	body []byte
	at   time.Time
}

func NewRefresher(fetcher Fetcher, positions PositionsSource, cfg *config.Config, snapshots *store.SnapshotStore, ms *metrics.MetricsService, logger *slog.Logger) *Refresher {
	return &Refresher{
		Fetcher:   fetcher,
		Positions: positions,
		Config:    cfg,
		Store:     snapshots,
		Metrics:   ms,
		Backoff:   config.NewBackoffStore(),
		Logger:    logger,
		Now:       time.Now,
	}
}

// Run refreshes immediately, then every refresh interval (never more often than
// config.MinRefreshInterval) until ctx is canceled.
func (r *Refresher) Run(ctx context.Context) {
	interval := config.ClampRefreshInterval(r.Config.RefreshInterval)
	r.Logger.Info("Starting refresh loop", "interval", interval)

	r.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("Stopping refresh loop")
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh runs one cycle and publishes its snapshot. Nothing is published when ctx
// ends during the cycle.
func (r *Refresher) Refresh(ctx context.Context) (*pipeline.Snapshot, error) {
	start := time.Now()
	now := r.Now().UTC()
	tracker := r.Config.GetTracker()

	in := r.fetchAll(ctx, tracker, now)
	in.Lines = r.currentLines(ctx, tracker, now)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := r.run(in, tracker, now)
	if err != nil {
		r.Logger.Error("Refresh cycle failed", "error", err)
		r.Store.SetError(err)
		return nil, err
	}

	r.Store.Set(snap, now)
	r.Metrics.RecordSnapshot(snap, time.Since(start))
	r.Logger.Debug("Published snapshot",
		"route", snap.RouteID,
		"departures", len(snap.Departures),
		"vehicles", len(snap.Vehicles),
		"duration", time.Since(start))
	return snap, nil
}

// run calls pipeline.Run, dropping each feed whose payload is structurally invalid
// until the cycle succeeds.
func (r *Refresher) run(in pipeline.Inputs, tracker models.Tracker, now time.Time) (*pipeline.Snapshot, error) {
	for {
		snap, err := pipeline.Run(in, tracker, now)
		var feedErr *pipeline.FeedError
		if err == nil || !errors.As(err, &feedErr) {
			return snap, err
		}
		if !dropFeed(&in, feedErr.Feed) {
			return nil, err
		}
		r.failed(feedErr.Feed, err, now)
	}
}

func dropFeed(in *pipeline.Inputs, feed string) bool {
	var payload *[]byte
	switch feed {
	case pipeline.FeedAlerts:
		payload = &in.Alerts
	case pipeline.FeedStopPredictions:
		payload = &in.StopPredictions
	case pipeline.FeedRoutePredictions:
		payload = &in.RoutePredictions
	case pipeline.FeedVehicles:
		payload = &in.Vehicles
	default:
		return false
	}
	if *payload == nil {
		return false
	}
	*payload = nil
	return true
}

type fetchResult struct {
	feed     string
	body     []byte
	vehicles []models.VehicleSnapshot
}

func (r *Refresher) fetchAll(ctx context.Context, tracker models.Tracker, now time.Time) pipeline.Inputs {
	route := tracker.RouteID
	vehicles := func(ctx context.Context) ([]byte, error) { return r.Fetcher.Vehicles(ctx, route) }
	tasks := map[string]func(context.Context) ([]byte, error){
		pipeline.FeedAlerts: func(ctx context.Context) ([]byte, error) { return r.Fetcher.Alerts(ctx, route) },
		pipeline.FeedStopPredictions: func(ctx context.Context) ([]byte, error) {
			return r.Fetcher.StopPredictions(ctx, route, tracker.StopID)
		},
		pipeline.FeedRoutePredictions: func(ctx context.Context) ([]byte, error) { return r.Fetcher.RoutePredictions(ctx, route) },
	}
	useRealtime := tracker.VehiclePositionsURL != "" && r.Positions != nil
	if !useRealtime {
		tasks[pipeline.FeedVehicles] = vehicles
	}

	p := pool.NewWithResults[fetchResult]().WithMaxGoroutines(len(tasks) + 1)
	for feed, fetch := range tasks {
		p.Go(func() fetchResult {
			return r.fetchFeed(ctx, feed, now, fetch)
		})
	}
	if useRealtime {
		p.Go(func() fetchResult {
			if r.Backoff.Ready(feedVehiclePositions, time.Now()) {
				snaps, err := r.Positions.FetchVehiclePositions(ctx, tracker.VehiclePositionsURL, route)
				if err == nil {
					r.succeeded(feedVehiclePositions, now)
					return fetchResult{feed: pipeline.FeedVehicles, vehicles: snaps}
				}
				// GtfsService has already reported the error
				r.Metrics.RecordFetch(feedVehiclePositions, err, now)
				r.Backoff.UpdateBackoff(feedVehiclePositions)
				r.Logger.Warn("Vehicle positions unavailable", "error", err)
			}
			maxAge := 2 * config.ClampRefreshInterval(r.Config.RefreshInterval)
			if snaps, ok := r.Positions.LastVehiclePositions(route, maxAge); ok {
				r.Logger.Debug("Serving last vehicle positions", "vehicles", len(snaps))
				return fetchResult{feed: pipeline.FeedVehicles, vehicles: snaps}
			}
			// the JSON:API vehicles feed is the fallback source
			return r.fetchFeed(ctx, pipeline.FeedVehicles, now, vehicles)
		})
	}

	var in pipeline.Inputs
	for _, res := range p.Wait() {
		switch res.feed {
		case pipeline.FeedAlerts:
			in.Alerts = res.body
		case pipeline.FeedStopPredictions:
			in.StopPredictions = res.body
		case pipeline.FeedRoutePredictions:
			in.RoutePredictions = res.body
		case pipeline.FeedVehicles:
			in.Vehicles = res.body
			in.VehicleSnapshots = res.vehicles
		}
	}
	return in
}

// fetchFeed fetches one feed unless it is in backoff. A failed or skipped feed has
// a nil body.
func (r *Refresher) fetchFeed(ctx context.Context, feed string, now time.Time, fetch func(context.Context) ([]byte, error)) fetchResult {
	if !r.Backoff.Ready(feed, time.Now()) {
		r.Logger.Debug("Skipping feed in backoff", "feed", feed)
		return fetchResult{feed: feed}
	}
	body, err := fetch(ctx)
	if err != nil {
		r.failed(feed, err, now)
		return fetchResult{feed: feed}
	}
	r.succeeded(feed, now)
	return fetchResult{feed: feed, body: body}
}

func (r *Refresher) succeeded(feed string, now time.Time) {
	r.Backoff.ResetBackoff(feed)
	r.Metrics.RecordFetch(feed, nil, now)
}

func (r *Refresher) failed(feed string, err error, now time.Time) {
	r.Metrics.RecordFetch(feed, err, now)
	if errors.Is(err, context.Canceled) {
		return
	}
	r.Backoff.UpdateBackoff(feed)
	r.Logger.Warn("Feed unavailable for this cycle", "feed", feed, "error", err)
	report.ReportFeedError(feed, r.Config.BaseURL, err)
}

// currentLines returns the merged map lines. Shapes are cached per route: a route
// with no cached shapes is fetched every cycle, and a route whose shapes are older
// than ShapesRefreshHours is refetched once shapes are out of backoff. A route that
// fails to fetch keeps its previous shapes.
func (r *Refresher) currentLines(ctx context.Context, tracker models.Tracker, now time.Time) []models.LineGeometry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shapes == nil {
		r.shapes = map[string]shapeEntry{}
	}
	key := linesKey(tracker.Lines)
	maxAge := time.Duration(tracker.ShapesRefreshHours) * time.Hour
	refreshStale := r.Backoff.Ready(pipeline.FeedShapes, time.Now())

	routeIDs := tracker.RouteIDs()
	configured := make(map[string]bool, len(routeIDs))
	var due []string
	for _, id := range routeIDs {
		configured[id] = true
		entry, ok := r.shapes[id]
		if !ok || (refreshStale && now.Sub(entry.at) >= maxAge) {
			due = append(due, id)
		}
	}
	for id := range r.shapes {
		if !configured[id] {
			delete(r.shapes, id)
		}
	}

	fetched := r.fetchShapes(ctx, due, now)
	if fetched == 0 && r.lines != nil && key == r.linesKey {
		return r.lines
	}

	payloads := make(map[string][]byte, len(r.shapes))
	for id, entry := range r.shapes {
		payloads[id] = entry.body
	}
	lines, err := pipeline.Lines(payloads, tracker.Lines)
	if err != nil {
		r.Logger.Warn("Some route shapes were unusable", "error", err)
		report.ReportFeedError(pipeline.FeedShapes, r.Config.BaseURL, err)
	}

	r.lines = lines
	r.linesKey = key
	r.Logger.Info("Rebuilt map lines", "lines", len(lines), "routes", len(payloads))
	return lines
}

// fetchShapes fetches the shapes of routeIDs into the cache and returns how many
// routes were fetched. Shapes go into backoff when any route fails.
func (r *Refresher) fetchShapes(ctx context.Context, routeIDs []string, now time.Time) int {
	if len(routeIDs) == 0 {
		return 0
	}

	p := pool.NewWithResults[fetchResult]().WithMaxGoroutines(4)
	for _, id := range routeIDs {
		p.Go(func() fetchResult {
			body, err := r.Fetcher.Shapes(ctx, id)
			if err != nil {
				r.Logger.Warn("Failed to fetch shapes", "route", id, "error", err)
				return fetchResult{feed: id}
			}
			return fetchResult{feed: id, body: body}
		})
	}

	var fetched int
	var missing []string
	for _, res := range p.Wait() {
		if res.body == nil {
			missing = append(missing, res.feed)
			continue
		}
		r.shapes[res.feed] = shapeEntry{body: res.body, at: now}
		fetched++
	}

	if len(missing) > 0 {
		if err := ctx.Err(); err != nil {
			r.Metrics.RecordFetch(pipeline.FeedShapes, err, now)
			return fetched
		}
		sort.Strings(missing)
		r.failed(pipeline.FeedShapes, fmt.Errorf("shapes unavailable for %s", strings.Join(missing, ", ")), now)
	} else {
		r.succeeded(pipeline.FeedShapes, now)
	}
	return fetched
}

func linesKey(lines []models.Line) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.Name)
		b.WriteByte('=')
		b.WriteString(strings.Join(l.RouteIDs, ","))
		b.WriteByte('#')
		b.WriteString(l.Color)
		b.WriteByte(';')
	}
	return b.String()
}
