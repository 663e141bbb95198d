package feed

import (
	"tracker.redline.org/internal/jsonapi"
	"tracker.redline.org/internal/models"
)

// Shapes maps shape resources fetched with filter[route]=routeID. A shape's own route
// relationship wins over routeID when present.
func Shapes(records []jsonapi.Record, routeID string) []models.Shape {
	shapes := make([]models.Shape, 0, len(records))
	for _, rec := range records {
		attrs := rec.Attributes
		shape := models.Shape{
			ID:       rec.ID,
			RouteID:  routeID,
			Polyline: attrs.StringOr("polyline", ""),
		}
		if id, ok := rec.RelID("route"); ok {
			shape.RouteID = id
		}
		if id, ok := rec.RelID("route_pattern"); ok {
			shape.PatternID = id
		} else {
			shape.PatternID = attrs.StringOr("pattern", "")
		}
		if shape.Polyline == "" {
			shape.Points = points(attrs.List("points"))
		}
		shapes = append(shapes, shape)
	}
	return shapes
}

func points(list []jsonapi.Attributes) []models.Point {
	out := make([]models.Point, 0, len(list))
	for _, p := range list {
		lat, latOK := firstFloat(p, "latitude", "lat")
		lon, lonOK := firstFloat(p, "longitude", "lon", "lng")
		if latOK && lonOK {
			out = append(out, models.Point{Lat: lat, Lon: lon})
		}
	}
	return out
}

func firstFloat(attrs jsonapi.Attributes, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := attrs.Float(k); ok {
			return v, true
		}
	}
	return 0, false
}
