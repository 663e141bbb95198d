package gtfs

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfsrtpb "github.com/jamespfennell/gtfs/proto"
	"google.golang.org/protobuf/proto"
)

type vehicleFixture struct {
	id, label, tripID, routeID, stopID string
	direction                          *uint32
	lat, lon                           float32
	bearing                            *float32
	status                             *gtfsrtpb.VehiclePosition_VehicleStopStatus
	noPosition                         bool
}

// vehiclePositionsFeed encodes a VehiclePositions FeedMessage with one entity per fixture.
func vehiclePositionsFeed(t *testing.T, fixtures ...vehicleFixture) []byte {
	t.Helper()

	var entities []*gtfsrtpb.FeedEntity
	for _, f := range fixtures {
		vp := &gtfsrtpb.VehiclePosition{
			Vehicle:       &gtfsrtpb.VehicleDescriptor{Id: proto.String(f.id), Label: proto.String(f.label)},
			CurrentStatus: f.status,
			Timestamp:     proto.Uint64(uint64(time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC).Unix())),
		}
		vp.Trip = &gtfsrtpb.TripDescriptor{
			TripId:      proto.String(f.tripID),
			RouteId:     proto.String(f.routeID),
			DirectionId: f.direction,
		}
		if !f.noPosition {
			vp.Position = &gtfsrtpb.Position{
				Latitude:  proto.Float32(f.lat),
				Longitude: proto.Float32(f.lon),
				Bearing:   f.bearing,
			}
		}
		if f.stopID != "" {
			vp.StopId = proto.String(f.stopID)
		}
		entities = append(entities, &gtfsrtpb.FeedEntity{Id: proto.String("e-" + f.id), Vehicle: vp})
	}

	incrementality := gtfsrtpb.FeedHeader_FULL_DATASET
	feed := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      &incrementality,
			Timestamp:           proto.Uint64(uint64(time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC).Unix())),
		},
		Entity: entities,
	}

	data, err := proto.Marshal(feed)
	if err != nil {
		t.Fatalf("Failed to marshal GTFS-RT fixture: %v", err)
	}
	return data
}

func setupGtfsRtServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	}))
	t.Cleanup(ts.Close)
	return ts
}
