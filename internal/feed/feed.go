// Package feed maps resolved MBTA v3 resources onto the typed records the rest of the
// tracker works with. Every attribute is optional; a missing or mistyped value leaves
// the field at its zero value or Unknown.
package feed

import (
	"strconv"

	"tracker.redline.org/internal/jsonapi"
	"tracker.redline.org/internal/models"
)

// Relationships each resource kind inlines. They are also what the resolver's
// unresolved-reference count is taken over.
var (
	PredictionRelationships = []string{"trip", "stop", "schedule"}
	VehicleRelationships    = []string{"trip", "stop"}
)

func direction(attrs jsonapi.Attributes) (models.Direction, bool) {
	if d, ok := attrs.Int("direction_id"); ok {
		return models.Direction(d), true
	}
	if s, ok := attrs.String("direction_id"); ok {
		if d, err := strconv.Atoi(s); err == nil {
			return models.Direction(d), true
		}
	}
	return models.DirectionUnknown, false
}

// firstDirection returns the first direction_id present among attrs.
func firstDirection(attrs ...jsonapi.Attributes) models.Direction {
	for _, a := range attrs {
		if d, ok := direction(a); ok {
			return d
		}
	}
	return models.DirectionUnknown
}

// stopName is the stop's name, its id when it resolved without a name, or Unknown.
func stopName(stop jsonapi.Attributes) string {
	if stop.IsUnknown() {
		return models.UnknownText
	}
	return stop.StringOr("name", stop.Ref().ID)
}
