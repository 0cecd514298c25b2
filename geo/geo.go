// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

// Package geo holds the geographic primitives shared by the ingestion
// pipeline and the serving layer.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	h3 "github.com/uber/h3-go/v4"
)

const earthRadius = 6371e3 // meters

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lon, p.Lat)
}

// Valid reports whether the point is a finite coordinate pair within the
// WGS84 domain. Out-of-range values are an extraction failure, never stored.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return false
	}

	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return false
	}

	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Cell returns the H3 cell that contains the point at the given resolution.
func (p Point) Cell(resolution int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lon}, resolution)
	if err != nil {
		return 0, fmt.Errorf("computing h3 cell at resolution %d: %w", resolution, err)
	}

	return cell, nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLon := (other.Lon - p.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// ParsePointString parses a combined coordinate field like "48.8566, 2.3522"
// (latitude first, the geo_point_2d convention of the Paris open-data portal).
// It returns nil when the field doesn't hold exactly two finite numbers.
func ParsePointString(s string) *Point {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil
	}

	p := Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return nil
	}

	return &p
}

// geoShape mirrors the GeoJSON geometry stored in the geo_shape column.
// Coordinates are (lon, lat) pairs, outer ring first.
type geoShape struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
	Geometry    *geoShape     `json:"geometry,omitempty"`
}

// ShapeCentroid derives a point from a GeoJSON polygon by averaging the
// vertices of the outer ring. This is a vertex average, not an area-weighted
// centroid: the source shapes are small and roughly convex, and the consumers
// only need a marker position.
func ShapeCentroid(rawShape string) *Point {
	var shape geoShape
	if err := json.Unmarshal([]byte(rawShape), &shape); err != nil {
		return nil
	}

	// Some exports wrap the geometry in a Feature object.
	if shape.Type == "Feature" && shape.Geometry != nil {
		shape = *shape.Geometry
	}

	if shape.Type != "Polygon" || len(shape.Coordinates) == 0 {
		return nil
	}

	ring := shape.Coordinates[0]
	if len(ring) == 0 {
		return nil
	}

	var sumLat, sumLon float64

	for _, vertex := range ring {
		if len(vertex) < 2 {
			return nil
		}

		sumLon += vertex[0]
		sumLat += vertex[1]
	}

	p := Point{
		Lat: sumLat / float64(len(ring)),
		Lon: sumLon / float64(len(ring)),
	}
	if !p.Valid() {
		return nil
	}

	return &p
}
