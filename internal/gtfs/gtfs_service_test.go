package gtfs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	remoteGtfs "github.com/jamespfennell/gtfs"
	gtfsrtpb "github.com/jamespfennell/gtfs/proto"
	"google.golang.org/protobuf/proto"

	"tracker.redline.org/internal/models"
)

func redLineFeed(t *testing.T) []byte {
	stopped := gtfsrtpb.VehiclePosition_STOPPED_AT
	inTransit := gtfsrtpb.VehiclePosition_IN_TRANSIT_TO
	return vehiclePositionsFeed(t,
		vehicleFixture{id: "R-5480", label: "1880", tripID: "t-2", routeID: "Red", stopID: "70065",
			direction: proto.Uint32(1), lat: 42.3967, lon: -71.1218, status: &inTransit},
		vehicleFixture{id: "R-5470", label: "1870", tripID: "t-1", routeID: "Red", stopID: "70061",
			direction: proto.Uint32(0), lat: 42.3954, lon: -71.1425, bearing: proto.Float32(135), status: &stopped},
		vehicleFixture{id: "O-1000", tripID: "t-9", routeID: "Orange", lat: 42.43, lon: -71.07},
		vehicleFixture{id: "R-0001", tripID: "t-3", routeID: "Red", noPosition: true},
		vehicleFixture{id: "R-0002", tripID: "t-4", routeID: "Red", lat: 91, lon: -71.1},
	)
}

func TestVehicleSnapshots(t *testing.T) {
	rt, err := remoteGtfs.ParseRealtime(redLineFeed(t), &remoteGtfs.ParseRealtimeOptions{})
	if err != nil {
		t.Fatalf("ParseRealtime failed: %v", err)
	}

	vehicles, dropped := VehicleSnapshots(rt, "Red")

	if len(vehicles) != 2 {
		t.Fatalf("expected 2 Red vehicles, got %d: %+v", len(vehicles), vehicles)
	}
	if dropped != 2 {
		t.Errorf("expected 2 dropped vehicles, got %d", dropped)
	}

	first := vehicles[0]
	if first.ID != "R-5470" {
		t.Fatalf("expected vehicles sorted by id, got %s first", first.ID)
	}
	if first.Label != "1870" || first.TripID != "t-1" || first.CurrentStopID != "70061" {
		t.Errorf("unexpected vehicle %+v", first)
	}
	if first.Direction != 0 || first.CurrentStatus != "STOPPED_AT" {
		t.Errorf("expected direction 0 STOPPED_AT, got %d %s", first.Direction, first.CurrentStatus)
	}
	if !first.HasBearing || first.Bearing != 135 {
		t.Errorf("expected bearing 135, got %v %v", first.HasBearing, first.Bearing)
	}
	if first.CurrentStopName != "" || first.Destination != "" {
		t.Errorf("GTFS-RT carries no names, got %q %q", first.CurrentStopName, first.Destination)
	}

	second := vehicles[1]
	if second.Direction != 1 || second.CurrentStatus != "IN_TRANSIT_TO" || second.HasBearing {
		t.Errorf("unexpected vehicle %+v", second)
	}
}

func TestVehicleSnapshotsUnknownDirection(t *testing.T) {
	data := vehiclePositionsFeed(t, vehicleFixture{id: "R-1", tripID: "t-1", routeID: "Red", lat: 42.39, lon: -71.14})
	rt, err := remoteGtfs.ParseRealtime(data, &remoteGtfs.ParseRealtimeOptions{})
	if err != nil {
		t.Fatalf("ParseRealtime failed: %v", err)
	}
	vehicles, _ := VehicleSnapshots(rt, "Red")
	if len(vehicles) != 1 || vehicles[0].Direction != models.DirectionUnknown {
		t.Errorf("expected unknown direction, got %+v", vehicles)
	}
}

func TestVehicleSnapshotsNil(t *testing.T) {
	vehicles, dropped := VehicleSnapshots(nil, "Red")
	if vehicles == nil || len(vehicles) != 0 || dropped != 0 {
		t.Errorf("expected empty result, got %v %d", vehicles, dropped)
	}
}

func TestFetchVehiclePositions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("stores parsed vehicles", func(t *testing.T) {
		ts := setupGtfsRtServer(t, redLineFeed(t))
		store := NewRealtimeStore()
		gs := NewGtfsService(store, logger, ts.Client())

		vehicles, err := gs.FetchVehiclePositions(context.Background(), ts.URL, "Red")
		if err != nil {
			t.Fatalf("FetchVehiclePositions failed: %v", err)
		}
		if len(vehicles) != 2 {
			t.Errorf("expected 2 vehicles, got %d", len(vehicles))
		}

		stored, fetchedAt, ok := store.Get()
		if !ok || len(stored) != 2 || fetchedAt.IsZero() {
			t.Errorf("expected vehicles in the store, got %d at %v", len(stored), fetchedAt)
		}
	})

	t.Run("bad status keeps previous vehicles", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer ts.Close()

		store := NewRealtimeStore()
		fetchedAt := time.Date(2025, 7, 15, 11, 59, 0, 0, time.UTC)
		store.Set([]models.VehicleSnapshot{{ID: "previous"}}, fetchedAt)
		gs := NewGtfsService(store, logger, ts.Client())

		if _, err := gs.FetchVehiclePositions(context.Background(), ts.URL, "Red"); err == nil {
			t.Fatal("expected an error for a 404 feed")
		}
		stored, at, ok := store.Get()
		if !ok || len(stored) != 1 || stored[0].ID != "previous" || !at.Equal(fetchedAt) {
			t.Errorf("expected previous vehicles to stay, got %+v at %v", stored, at)
		}
	})

	t.Run("garbage payload", func(t *testing.T) {
		ts := setupGtfsRtServer(t, []byte("not a protobuf message"))
		gs := NewGtfsService(NewRealtimeStore(), logger, ts.Client())

		if _, err := gs.FetchVehiclePositions(context.Background(), ts.URL, "Red"); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestRealtimeStoreEmpty(t *testing.T) {
	if _, _, ok := NewRealtimeStore().Get(); ok {
		t.Error("expected an empty store to report not ok")
	}
}

func TestLastVehiclePositions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("empty store", func(t *testing.T) {
		gs := NewGtfsService(NewRealtimeStore(), logger, http.DefaultClient)
		if _, ok := gs.LastVehiclePositions("Red", time.Minute); ok {
			t.Error("expected no positions before the first fetch")
		}
	})

	t.Run("recent fetch filtered by route", func(t *testing.T) {
		store := NewRealtimeStore()
		store.Set([]models.VehicleSnapshot{{ID: "R-1", RouteID: "Red"}, {ID: "O-1", RouteID: "Orange"}}, time.Now().UTC())
		gs := NewGtfsService(store, logger, http.DefaultClient)

		vehicles, ok := gs.LastVehiclePositions("Red", time.Minute)
		if !ok {
			t.Fatal("expected recent positions")
		}
		if len(vehicles) != 1 || vehicles[0].ID != "R-1" {
			t.Errorf("expected only R-1, got %+v", vehicles)
		}
	})

	t.Run("stale fetch", func(t *testing.T) {
		store := NewRealtimeStore()
		store.Set([]models.VehicleSnapshot{{ID: "R-1", RouteID: "Red"}}, time.Now().Add(-2*time.Minute).UTC())
		gs := NewGtfsService(store, logger, http.DefaultClient)

		if _, ok := gs.LastVehiclePositions("Red", time.Minute); ok {
			t.Error("expected positions older than maxAge to be refused")
		}
	})

	t.Run("survives a failed fetch", func(t *testing.T) {
		var failing atomic.Bool
		feed := redLineFeed(t)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if failing.Load() {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(feed)
		}))
		defer ts.Close()

		gs := NewGtfsService(NewRealtimeStore(), logger, ts.Client())
		if _, err := gs.FetchVehiclePositions(context.Background(), ts.URL, "Red"); err != nil {
			t.Fatalf("FetchVehiclePositions failed: %v", err)
		}
		failing.Store(true)
		if _, err := gs.FetchVehiclePositions(context.Background(), ts.URL, "Red"); err == nil {
			t.Fatal("expected an error from the failing feed")
		}

		vehicles, ok := gs.LastVehiclePositions("Red", time.Minute)
		if !ok || len(vehicles) != 2 {
			t.Errorf("expected the 2 Red vehicles of the last good fetch, got %d (ok=%v)", len(vehicles), ok)
		}
	})
}
