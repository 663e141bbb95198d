package geo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-polyline"

	"tracker.redline.org/internal/models"
)

const (
	// JoinToleranceMeters is how close the end of one pattern piece must be to the
	// start of the next for the two to be drawn as one trace.
	JoinToleranceMeters = 25.0

	// DuplicateToleranceMeters is how far a point may lie from a kept trace and still
	// count as covered by it.
	DuplicateToleranceMeters = 50.0

	// DuplicateShare is the share of covered points at which a shorter shape is dropped.
	DuplicateShare = 0.9
)

var ErrShapeTooShort = errors.New("shape has fewer than two points")

// DecodeShape returns the points of a shape, from its polyline (precision 5) or, when
// it has none, from its explicit point list.
func DecodeShape(shape models.Shape) ([]models.Point, error) {
	var points []models.Point
	if shape.Polyline != "" {
		coords, rest, err := polyline.DecodeCoords([]byte(shape.Polyline))
		if err != nil {
			return nil, fmt.Errorf("failed to decode polyline of shape %s: %w", shape.ID, err)
		}
		if len(rest) > 0 {
			return nil, fmt.Errorf("failed to decode polyline of shape %s: %d trailing bytes", shape.ID, len(rest))
		}
		points = make([]models.Point, 0, len(coords))
		for _, c := range coords {
			points = append(points, models.Point{Lat: c[0], Lon: c[1]})
		}
	} else {
		points = append([]models.Point(nil), shape.Points...)
	}

	for _, p := range points {
		if !IsValidLatLon(p.Lat, p.Lon) {
			return nil, fmt.Errorf("shape %s has an invalid point (%f, %f)", shape.ID, p.Lat, p.Lon)
		}
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("shape %s: %w", shape.ID, ErrShapeTooShort)
	}
	return points, nil
}

type decodedShape struct {
	id      string
	pattern string
	points  []models.Point
}

// MergeShapes reduces raw shapes to drawable traces per route, sorted by route id.
//
// Shapes that share a pattern are concatenated in shape id order where consecutive
// pieces meet. Shapes without a pattern are taken longest first (ties by shape id);
// each is dropped when it is almost entirely covered by a trace already kept, and kept
// as its own trace otherwise. Shapes that fail to decode are skipped. Routes left with
// no trace are omitted.
func MergeShapes(shapes []models.Shape) []models.RouteGeometry {
	byRoute := map[string][]decodedShape{}
	for _, shape := range shapes {
		if shape.RouteID == "" {
			continue
		}
		points, err := DecodeShape(shape)
		if err != nil {
			continue
		}
		byRoute[shape.RouteID] = append(byRoute[shape.RouteID], decodedShape{id: shape.ID, pattern: shape.PatternID, points: points})
	}

	routeIDs := make([]string, 0, len(byRoute))
	for id := range byRoute {
		routeIDs = append(routeIDs, id)
	}
	sort.Strings(routeIDs)

	out := make([]models.RouteGeometry, 0, len(routeIDs))
	for _, routeID := range routeIDs {
		traces := mergeRoute(byRoute[routeID])
		if len(traces) == 0 {
			continue
		}
		out = append(out, models.RouteGeometry{RouteID: routeID, Traces: traces})
	}
	return out
}

func mergeRoute(shapes []decodedShape) [][]models.Point {
	byPattern := map[string][]decodedShape{}
	var loose []decodedShape
	for _, s := range shapes {
		if s.pattern == "" {
			loose = append(loose, s)
			continue
		}
		byPattern[s.pattern] = append(byPattern[s.pattern], s)
	}

	patterns := make([]string, 0, len(byPattern))
	for p := range byPattern {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	traces := [][]models.Point{}
	for _, p := range patterns {
		pieces := byPattern[p]
		sort.SliceStable(pieces, func(i, j int) bool { return pieces[i].id < pieces[j].id })
		traces = append(traces, joinPieces(pieces)...)
	}

	sort.SliceStable(loose, func(i, j int) bool {
		if len(loose[i].points) != len(loose[j].points) {
			return len(loose[i].points) > len(loose[j].points)
		}
		return loose[i].id < loose[j].id
	})

	kept := make([]s2.Polyline, 0, len(traces)+len(loose))
	for _, t := range traces {
		kept = append(kept, toPolyline(t))
	}
	for _, s := range loose {
		if isNearDuplicate(s.points, kept) {
			continue
		}
		trace := append([]models.Point(nil), s.points...)
		traces = append(traces, trace)
		kept = append(kept, toPolyline(trace))
	}
	return traces
}

// joinPieces concatenates consecutive pieces whose joint is within tolerance, dropping
// the repeated joint point. A gap starts a new trace.
func joinPieces(pieces []decodedShape) [][]models.Point {
	var out [][]models.Point
	current := append([]models.Point(nil), pieces[0].points...)
	for _, next := range pieces[1:] {
		if pointDistance(current[len(current)-1], next.points[0]) <= JoinToleranceMeters {
			current = append(current, next.points[1:]...)
			continue
		}
		out = append(out, current)
		current = append([]models.Point(nil), next.points...)
	}
	return append(out, current)
}

func isNearDuplicate(points []models.Point, kept []s2.Polyline) bool {
	if len(kept) == 0 {
		return false
	}
	covered := 0
	for _, p := range points {
		sp := toS2(p)
		for i := range kept {
			projected, _ := kept[i].Project(sp)
			if sp.Distance(projected).Radians()*earthRadiusInMeters <= DuplicateToleranceMeters {
				covered++
				break
			}
		}
	}
	return float64(covered) >= DuplicateShare*float64(len(points))
}

func toPolyline(points []models.Point) s2.Polyline {
	line := make(s2.Polyline, 0, len(points))
	for _, p := range points {
		line = append(line, toS2(p))
	}
	return line
}
