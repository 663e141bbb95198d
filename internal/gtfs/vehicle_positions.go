package gtfs

import (
	"sort"

	remoteGtfs "github.com/jamespfennell/gtfs"

	"tracker.redline.org/internal/geo"
	"tracker.redline.org/internal/models"
)

// GTFS-RT VehicleStopStatus values, rendered the way the MBTA v3 API spells them.
var currentStatusNames = map[remoteGtfs.CurrentStatus]string{
	0: "INCOMING_AT",
	1: "STOPPED_AT",
	2: "IN_TRANSIT_TO",
}

// VehicleSnapshots converts the vehicles of a parsed VehiclePositions feed that serve
// routeID. Vehicles without an id, a trip on the route or a valid position are left out;
// the count of those on the route, or with no trip at all, is returned as dropped.
// Stop names and destinations are not part of GTFS-RT and stay empty.
func VehicleSnapshots(rt *remoteGtfs.Realtime, routeID string) (vehicles []models.VehicleSnapshot, dropped int) {
	vehicles = []models.VehicleSnapshot{}
	if rt == nil {
		return vehicles, 0
	}

	for _, v := range rt.Vehicles {
		if v.Trip == nil {
			dropped++
			continue
		}
		if v.Trip.ID.RouteID != routeID {
			continue
		}
		if v.ID == nil || v.ID.ID == "" || v.Position == nil || v.Position.Latitude == nil || v.Position.Longitude == nil {
			dropped++
			continue
		}
		lat := float64(*v.Position.Latitude)
		lon := float64(*v.Position.Longitude)
		if !geo.IsValidLatLon(lat, lon) {
			dropped++
			continue
		}

		snap := models.VehicleSnapshot{
			ID:        v.ID.ID,
			Label:     v.ID.Label,
			RouteID:   routeID,
			Lat:       lat,
			Lon:       lon,
			TripID:    v.Trip.ID.ID,
			Direction: direction(v.Trip.ID.DirectionID),
		}
		if v.Position.Bearing != nil {
			snap.Bearing = float64(*v.Position.Bearing)
			snap.HasBearing = true
		}
		if v.StopID != nil {
			snap.CurrentStopID = *v.StopID
		}
		if v.CurrentStatus != nil {
			snap.CurrentStatus = currentStatusNames[*v.CurrentStatus]
		}
		vehicles = append(vehicles, snap)
	}

	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	return vehicles, dropped
}

func direction(d remoteGtfs.DirectionID) models.Direction {
	switch d {
	case remoteGtfs.DirectionID_False:
		return 0
	case remoteGtfs.DirectionID_True:
		return 1
	}
	return models.DirectionUnknown
}
