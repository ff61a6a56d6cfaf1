package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Point represents a PostGIS Point geometry.
// It stores coordinates in GeoJSON order: [lon, lat] for SRID 4326 (WGS84).
type Point struct {
	Coordinates [2]float64 // GeoJSON coordinate pair
	SRID        int        // Spatial Reference ID (default: 4326)
}

// X returns the planar X coordinate (longitude for WGS84).
func (p Point) X() float64 {
	return p.Coordinates[0]
}

// Y returns the planar Y coordinate (latitude for WGS84).
func (p Point) Y() float64 {
	return p.Coordinates[1]
}

// Scan implements sql.Scanner for reading point geometry from the database.
// PostGIS returns the geometry as GeoJSON when queried with ST_AsGeoJSON.
func (p *Point) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	// PostGIS with ST_AsGeoJSON returns JSON as []byte
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan Point: expected []byte, got %T", value)
	}

	var geom struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}

	if err := json.Unmarshal(bytes, &geom); err != nil {
		return fmt.Errorf("failed to unmarshal point geometry: %w", err)
	}

	if geom.Type != "Point" {
		return fmt.Errorf("expected Point type, got %s", geom.Type)
	}

	p.Coordinates = geom.Coordinates
	p.SRID = 4326 // Default to WGS84

	return nil
}

// Value implements driver.Valuer for writing point geometry to the database.
// Returns a GeoJSON string to be used with ST_GeomFromGeoJSON in raw SQL.
func (p Point) Value() (driver.Value, error) {
	geom := map[string]interface{}{
		"type":        "Point",
		"coordinates": p.Coordinates,
	}

	geoJSON, err := json.Marshal(geom)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal point to GeoJSON: %w", err)
	}

	return string(geoJSON), nil
}

// MarshalJSON implements json.Marshaler for API responses.
// Returns GeoJSON-compliant format.
func (p Point) MarshalJSON() ([]byte, error) {
	geom := struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}{
		Type:        "Point",
		Coordinates: p.Coordinates,
	}
	return json.Marshal(geom)
}

// UnmarshalJSON implements json.Unmarshaler for parsing GeoJSON input.
func (p *Point) UnmarshalJSON(data []byte) error {
	var geom struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}

	if err := json.Unmarshal(data, &geom); err != nil {
		return fmt.Errorf("failed to unmarshal point: %w", err)
	}

	if geom.Type != "" && geom.Type != "Point" {
		return fmt.Errorf("expected Point type, got %s", geom.Type)
	}

	p.Coordinates = geom.Coordinates
	p.SRID = 4326

	return nil
}
