package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"tracker.redline.org/internal/models"
)

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains checks whether the given latitude and longitude are within the bounding box
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Extend grows the box to cover the point. Invalid points are ignored.
func (b *BoundingBox) Extend(lat, lon float64) {
	if !IsValidLatLon(lat, lon) || b.Contains(lat, lon) {
		return
	}
	b.MinLat = math.Min(b.MinLat, lat)
	b.MaxLat = math.Max(b.MaxLat, lat)
	b.MinLon = math.Min(b.MinLon, lon)
	b.MaxLon = math.Max(b.MaxLon, lon)
}

// ComputeBoundingBox computes the bounding box of every trace point of the given
// geometries. The map uses it as its initial viewport.
func ComputeBoundingBox(geometries []models.RouteGeometry) (BoundingBox, error) {
	minLat := math.MaxFloat64
	maxLat := -math.MaxFloat64
	minLon := math.MaxFloat64
	maxLon := -math.MaxFloat64

	for _, g := range geometries {
		for _, trace := range g.Traces {
			for _, p := range trace {
				if !IsValidLatLon(p.Lat, p.Lon) {
					continue
				}
				minLat = math.Min(minLat, p.Lat)
				maxLat = math.Max(maxLat, p.Lat)
				minLon = math.Min(minLon, p.Lon)
				maxLon = math.Max(maxLon, p.Lon)
			}
		}
	}

	if minLat == math.MaxFloat64 {
		return BoundingBox{}, fmt.Errorf("no valid latitude/longitude found in traces")
	}

	return BoundingBox{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLon: minLon,
		MaxLon: maxLon,
	}, nil
}

// IsValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Latitude must be between -90 and 90 degrees, and longitude must be
// between -180 and 180 degrees.
//
// Note: (0,0) is treated as invalid. Vehicles that have not reported a fix
// show up there.
func IsValidLatLon(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

// earthRadiusInMeters represents the mean radius of the Earth in meters.
//
// This value (6,371,000 meters) is defined as the Earth's volumetric mean radius,
// which is commonly used for general geospatial calculations and spherical approximations.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInMeters = 6371000

// HaversineDistance is the great-circle distance in meters between two positions.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusInMeters
}

func toS2(p models.Point) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))
}

func pointDistance(a, b models.Point) float64 {
	return HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
}
