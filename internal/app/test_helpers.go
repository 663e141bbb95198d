package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tracker.redline.org/internal/config"
	"tracker.redline.org/internal/metrics"
	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/store"
	"tracker.redline.org/internal/utils"
)

// 08:00 in Boston, matching the fixtures.
var fixtureNow = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

func readFixture(t *testing.T, fixturePath string) []byte {
	t.Helper()

	absPath, err := filepath.Abs(filepath.Join("..", "..", "testdata", fixturePath))
	if err != nil {
		t.Fatalf("Failed to get absolute path to testdata/%s: %v", fixturePath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		t.Fatalf("Failed to read fixture file: %v", err)
	}

	return data
}

var errUnavailable = errors.New("service unavailable")

// fakeFetcher serves the testdata fixtures. Feeds listed in payloads override the
// fixtures and feeds listed in fail return errUnavailable.
type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string][]byte
	fail     map[string]bool
	calls    map[string]int
}

func newFakeFetcher(t *testing.T) *fakeFetcher {
	t.Helper()
	return &fakeFetcher{
		payloads: map[string][]byte{
			"alerts":            readFixture(t, "alerts.json"),
			"stop_predictions":  readFixture(t, "predictions_alewife.json"),
			"route_predictions": readFixture(t, "predictions_red.json"),
			"vehicles":          readFixture(t, "vehicles.json"),
			"shapes/Red":        readFixture(t, "shapes_red.json"),
			"shapes/Green-B":    readFixture(t, "shapes_green_b.json"),
		},
		fail:  map[string]bool{},
		calls: map[string]int{},
	}
}

func (f *fakeFetcher) set(feed string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[feed] = payload
}

func (f *fakeFetcher) setFailing(feed string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[feed] = failing
}

func (f *fakeFetcher) callCount(feed string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[feed]
}

func (f *fakeFetcher) serve(feed string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[feed]++
	if f.fail[feed] {
		return nil, errUnavailable
	}
	body, ok := f.payloads[feed]
	if !ok {
		return nil, errUnavailable
	}
	return body, nil
}

func (f *fakeFetcher) Alerts(ctx context.Context, routeID string) ([]byte, error) {
	return f.serve("alerts")
}

func (f *fakeFetcher) StopPredictions(ctx context.Context, routeID, stopID string) ([]byte, error) {
	return f.serve("stop_predictions")
}

func (f *fakeFetcher) RoutePredictions(ctx context.Context, routeID string) ([]byte, error) {
	return f.serve("route_predictions")
}

func (f *fakeFetcher) Vehicles(ctx context.Context, routeID string) ([]byte, error) {
	return f.serve("vehicles")
}

func (f *fakeFetcher) Shapes(ctx context.Context, routeID string) ([]byte, error) {
	return f.serve("shapes/" + routeID)
}

// fakePositions serves vehicles, or err when set. last is what a failed fetch
// falls back to.
type fakePositions struct {
	vehicles []models.VehicleSnapshot
	err      error
	last     []models.VehicleSnapshot
	calls    int
}

func (p *fakePositions) FetchVehiclePositions(ctx context.Context, url, routeID string) ([]models.VehicleSnapshot, error) {
	p.calls++
	return p.vehicles, p.err
}

func (p *fakePositions) LastVehiclePositions(routeID string, maxAge time.Duration) ([]models.VehicleSnapshot, bool) {
	return p.last, p.last != nil
}

// testTracker draws only the routes the fixtures have shapes for.
func testTracker() models.Tracker {
	tracker := models.DefaultTracker()
	tracker.Lines = []models.Line{
		{Name: "Red", RouteIDs: []string{"Red"}, Color: "#DA291C"},
		{Name: "Green", RouteIDs: []string{"Green-B"}, Color: "#00843D"},
	}
	return tracker
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRefresher(t *testing.T, fetcher Fetcher) *Refresher {
	t.Helper()
	cfg := config.NewConfig(4000, "testing", testTracker())
	logger := testLogger()
	r := NewRefresher(fetcher, nil, cfg, store.NewSnapshotStore(), metrics.NewMetricsService(metrics.NewVehicleLastSeen(), logger), logger)
	r.Now = func() time.Time { return fixtureNow }
	return r
}

func newTestApplication(t *testing.T) (*Application, *fakeFetcher) {
	t.Helper()
	fetcher := newFakeFetcher(t)
	r := newTestRefresher(t, fetcher)
	return &Application{
		ConfigService:  config.NewConfigService(r.Logger, nil, r.Config),
		MetricsService: r.Metrics,
		Refresher:      r,
		Store:          r.Store,
		Logger:         r.Logger,
		Version:        "test-version",
		Location:       utils.FeedLocation,
	}, fetcher
}
