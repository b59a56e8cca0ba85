package choropleth

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Zachdehooge/choropleth-slider/internal/geojson"
)

// Style is a Leaflet path style, e.g. {"color": "#ff0000", "opacity": 0.6}.
type Style map[string]any

// StyleFunc maps a feature to its style for every timestamp.
type StyleFunc func(geojson.Feature) map[int64]Style

// StyleMap groups features whose per-timestamp style tables are equal so
// the script carries each distinct table once.
type StyleMap struct {
	// Groups excludes the default table, in first-seen order.
	Groups []StyleGroup
	// Default is the JSON table shared by the most features.
	Default string
}

// StyleGroup is one distinct table and the identifiers using it.
type StyleGroup struct {
	Table string
	IDs   []any
}

// BuildStyleMap evaluates fn for every feature. Each table must cover
// every timestamp; entries for other timestamps are dropped.
func BuildStyleMap(table string, fc *geojson.FeatureCollection, id geojson.Identifier, timestamps []int64, fn StyleFunc) (*StyleMap, error) {
	var groups []StyleGroup
	index := make(map[string]int)

	for _, f := range fc.Features {
		styles := fn(f)
		frame := make(map[string]Style, len(timestamps))
		for _, ts := range timestamps {
			s, ok := styles[ts]
			if !ok {
				return nil, &MissingTimestampError{Table: table, Timestamp: ts, Feature: id.Value(f)}
			}
			frame[strconv.FormatInt(ts, 10)] = s
		}

		raw, err := json.Marshal(frame)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s for feature %v: %w", table, id.Value(f), err)
		}
		key := string(raw)

		if i, ok := index[key]; ok {
			groups[i].IDs = append(groups[i].IDs, id.Value(f))
			continue
		}
		index[key] = len(groups)
		groups = append(groups, StyleGroup{Table: key, IDs: []any{id.Value(f)}})
	}

	if len(groups) == 0 {
		return &StyleMap{Default: "{}"}, nil
	}

	def := 0
	for i, g := range groups {
		if len(g.IDs) > len(groups[def].IDs) {
			def = i
		}
	}
	sm := &StyleMap{Default: groups[def].Table}
	for i, g := range groups {
		if i != def {
			sm.Groups = append(sm.Groups, g)
		}
	}
	return sm, nil
}
