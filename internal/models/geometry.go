package models

// Point is a WGS84 position in map order.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// RouteGeometry holds the drawable traces of one route. Every trace has at least
// two points; branches are separate traces.
type RouteGeometry struct {
	RouteID string    `json:"route_id"`
	Traces  [][]Point `json:"traces"`
}

// LineGeometry groups the routes of one display line, e.g. the four Green Line branches.
type LineGeometry struct {
	Name   string          `json:"name"`
	Color  string          `json:"color"`
	Routes []RouteGeometry `json:"routes"`
}

// Shape is one raw shape resource: an encoded polyline, or explicit points when the
// source has no polyline. PatternID is empty when the feed gives no branch identity.
type Shape struct {
	ID        string
	RouteID   string
	PatternID string
	Polyline  string
	Points    []Point
}
