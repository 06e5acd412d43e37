package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Boundary is one ward polygon from a GeoJSON FeatureCollection export.
// The geometry is carried verbatim; the spatial store parses it.
type Boundary struct {
	Code     string
	Name     string
	Geometry json.RawMessage
}

// ParseBoundaryCollection decodes ward boundaries from a GeoJSON
// FeatureCollection. Features must carry "code" and "name" properties and
// a Polygon or MultiPolygon geometry.
func ParseBoundaryCollection(data []byte) ([]Boundary, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse boundary collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("boundary document is %q, want FeatureCollection", fc.Type)
	}

	boundaries := make([]Boundary, 0, len(fc.Features))
	for i, f := range fc.Features {
		b, err := parseFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		boundaries = append(boundaries, b)
	}
	return boundaries, nil
}

func parseFeature(f feature) (Boundary, error) {
	code := stringify(f.Properties["code"])
	if code == "" {
		return Boundary{}, errors.New("missing code property")
	}
	name := stringify(f.Properties["name"])
	if name == "" {
		return Boundary{}, errors.New("missing name property")
	}

	var g geometryHeader
	if err := json.Unmarshal(f.Geometry, &g); err != nil {
		return Boundary{}, fmt.Errorf("parse geometry: %w", err)
	}
	switch g.Type {
	case "Polygon", "MultiPolygon":
	default:
		return Boundary{}, fmt.Errorf("unsupported geometry type %q", g.Type)
	}

	return Boundary{Code: code, Name: name, Geometry: f.Geometry}, nil
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type geometryHeader struct {
	Type string `json:"type"`
}
