// Package geojson holds the small slice of the GeoJSON model the map
// generator needs: feature collections, features and how a feature is
// identified from the browser side.
package geojson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFeatureCollection is returned when a document is neither a
	// FeatureCollection nor a single Feature.
	ErrNotFeatureCollection = errors.New("geojson: document is not a FeatureCollection or Feature")

	// ErrNoFeatureIdentifier is returned when features cannot be told apart
	// by an id, either at the top level or in their properties.
	ErrNoFeatureIdentifier = errors.New("geojson: no unique identifier for each feature; set feature ids or a feature key")
)

// Geometry mirrors the GeoJSON geometry object the frontend expects.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Geometries  []Geometry      `json:"geometries,omitempty"`
}

// Feature is one geographic record.
type Feature struct {
	Type       string         `json:"type"`
	ID         any            `json:"id,omitempty"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is the top-level document handed to Leaflet.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Decode parses a FeatureCollection. A bare Feature is wrapped into a
// collection of one. Numbers are kept as json.Number so ids round-trip
// exactly into the generated script.
func Decode(data []byte) (*FeatureCollection, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	switch probe.Type {
	case "FeatureCollection":
		var fc FeatureCollection
		if err := dec.Decode(&fc); err != nil {
			return nil, fmt.Errorf("failed to parse FeatureCollection: %w", err)
		}
		if fc.Features == nil {
			fc.Features = []Feature{}
		}
		return &fc, nil
	case "Feature":
		var f Feature
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse Feature: %w", err)
		}
		return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{f}}, nil
	default:
		return nil, fmt.Errorf("%w (type %q)", ErrNotFeatureCollection, probe.Type)
	}
}

// Identifier says how a feature is addressed in the generated script.
type Identifier struct {
	// Expr is the JavaScript expression evaluated against `feature`.
	Expr string
	// Key is the property name, empty when the top-level id is used.
	Key string
}

// Value returns the identifier value of f on the Go side, matching what
// Expr yields in the browser.
func (id Identifier) Value(f Feature) any {
	if id.Key == "" {
		return f.ID
	}
	return f.Properties[id.Key]
}

// FindIdentifier picks the identifier for fc. A non-empty key forces
// feature.properties[key]; otherwise feature.id is used when every
// feature has one, then feature.properties.id.
func FindIdentifier(fc *FeatureCollection, key string) (Identifier, error) {
	if key != "" {
		for i, f := range fc.Features {
			if _, ok := f.Properties[key]; !ok {
				return Identifier{}, fmt.Errorf("%w: feature %d has no property %q", ErrNoFeatureIdentifier, i, key)
			}
		}
		quoted, err := json.Marshal(key)
		if err != nil {
			return Identifier{}, err
		}
		return Identifier{Expr: "feature.properties[" + string(quoted) + "]", Key: key}, nil
	}

	if all(fc.Features, func(f Feature) bool { return f.ID != nil }) {
		return Identifier{Expr: "feature.id"}, nil
	}
	if all(fc.Features, func(f Feature) bool { _, ok := f.Properties["id"]; return ok }) {
		return Identifier{Expr: "feature.properties.id", Key: "id"}, nil
	}
	return Identifier{}, ErrNoFeatureIdentifier
}

func all(features []Feature, pred func(Feature) bool) bool {
	for _, f := range features {
		if !pred(f) {
			return false
		}
	}
	return true
}
