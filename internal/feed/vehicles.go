package feed

import (
	"tracker.redline.org/internal/geo"
	"tracker.redline.org/internal/jsonapi"
	"tracker.redline.org/internal/models"
)

// Vehicles maps vehicle resources fetched with include=trip,stop. Vehicles without a
// usable position cannot be drawn and are dropped; the second result counts them.
func Vehicles(records []jsonapi.Record) ([]models.VehicleSnapshot, int) {
	vehicles := make([]models.VehicleSnapshot, 0, len(records))
	dropped := 0
	for _, rec := range records {
		attrs := rec.Attributes
		lat, lon, ok := position(attrs)
		if !ok || !geo.IsValidLatLon(lat, lon) {
			dropped++
			continue
		}
		trip := rec.Rel("trip")
		v := models.VehicleSnapshot{
			ID:              rec.ID,
			Label:           attrs.StringOr("label", ""),
			Lat:             lat,
			Lon:             lon,
			CurrentStatus:   attrs.StringOr("current_status", ""),
			CurrentStopName: stopName(rec.Rel("stop")),
			Direction:       firstDirection(attrs, trip),
			Destination:     trip.StringOr("headsign", models.UnknownText),
		}
		v.Bearing, v.HasBearing = attrs.Float("bearing")
		v.RouteID, _ = rec.RelID("route")
		v.TripID, _ = rec.RelID("trip")
		v.CurrentStopID, _ = rec.RelID("stop")
		vehicles = append(vehicles, v)
	}
	return vehicles, dropped
}

// position reads latitude/longitude, falling back to a nested position object.
func position(attrs jsonapi.Attributes) (float64, float64, bool) {
	lat, latOK := attrs.Float("latitude")
	lon, lonOK := attrs.Float("longitude")
	if latOK && lonOK {
		return lat, lon, true
	}
	pos, ok := attrs.Object("position")
	if !ok {
		return 0, 0, false
	}
	lat, latOK = pos.Float("latitude")
	lon, lonOK = pos.Float("longitude")
	return lat, lon, latOK && lonOK
}
