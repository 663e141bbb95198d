package pipeline

import (
	"errors"
	"sort"

	"tracker.redline.org/internal/feed"
	"tracker.redline.org/internal/geo"
	"tracker.redline.org/internal/jsonapi"
	"tracker.redline.org/internal/models"
)

// Lines merges per-route shape payloads into the configured map layers. A route whose
// payload is unusable is left out and its *FeedError joined into the returned error;
// the layers built from the other routes are still returned.
func Lines(payloads map[string][]byte, lines []models.Line) ([]models.LineGeometry, error) {
	routeIDs := make([]string, 0, len(payloads))
	for id := range payloads {
		routeIDs = append(routeIDs, id)
	}
	sort.Strings(routeIDs)

	var errs []error
	var shapes []models.Shape
	for _, routeID := range routeIDs {
		doc, err := jsonapi.Parse(payloads[routeID])
		if err != nil {
			errs = append(errs, &FeedError{Feed: FeedShapes + "/" + routeID, Err: err})
			continue
		}
		shapes = append(shapes, feed.Shapes(doc.Resolve(), routeID)...)
	}

	byRoute := map[string]models.RouteGeometry{}
	for _, g := range geo.MergeShapes(shapes) {
		byRoute[g.RouteID] = g
	}

	out := []models.LineGeometry{}
	for _, line := range lines {
		layer := models.LineGeometry{Name: line.Name, Color: line.Color, Routes: []models.RouteGeometry{}}
		for _, id := range line.RouteIDs {
			if g, ok := byRoute[id]; ok {
				layer.Routes = append(layer.Routes, g)
			}
		}
		if len(layer.Routes) > 0 {
			out = append(out, layer)
		}
	}
	return out, errors.Join(errs...)
}
