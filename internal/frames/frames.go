// Package frames decodes the per-timestamp description of a time-slider
// layer from YAML or JSON and turns it into choropleth options.
package frames

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Zachdehooge/choropleth-slider/internal/choropleth"
	"github.com/Zachdehooge/choropleth-slider/internal/geojson"
)

// ErrEmpty is returned by Decode for a document with no content.
var ErrEmpty = errors.New("frames: document is empty")

// File is the decoded frames document. Timestamp keys are strings so
// that JSON documents decode the same way as YAML ones.
type File struct {
	Timestamps       []int64                                `yaml:"timestamps"`
	FeatureKey       string                                 `yaml:"feature_key"`
	Styles           map[string]map[string]choropleth.Style `yaml:"styles"`
	Highlights       map[string]map[string]choropleth.Style `yaml:"highlights"`
	DefaultStyle     choropleth.Style                       `yaml:"default_style"`
	DefaultHighlight choropleth.Style                       `yaml:"default_highlight"`
	Tooltips         map[string]any                         `yaml:"tooltips"`
	Popup            *Popup                                 `yaml:"popup"`
	Marker           *Marker                                `yaml:"marker"`
}

// Popup configures the property table shown when a feature is clicked.
type Popup struct {
	Fields     []string       `yaml:"fields"`
	Aliases    []string       `yaml:"aliases"`
	HideLabels bool           `yaml:"hide_labels"`
	Localize   bool           `yaml:"localize"`
	Style      string         `yaml:"style"`
	ClassName  string         `yaml:"class_name"`
	Options    map[string]any `yaml:"options"`
}

// Marker selects how point features are drawn.
type Marker struct {
	Kind    string         `yaml:"kind"`
	Options map[string]any `yaml:"options"`
	Icon    *Icon          `yaml:"icon"`
}

// Icon is the icon of a "marker" kind Marker.
type Icon struct {
	Kind    string         `yaml:"kind"`
	Options map[string]any `yaml:"options"`
}

// Decode parses a YAML or JSON frames document. Unknown keys are errors.
func Decode(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to parse frames: %w", err)
	}
	return &f, nil
}

// AllTimestamps returns the explicit timestamp list, or the union of every
// timestamp keyed in the style, highlight and tooltip tables.
func (f *File) AllTimestamps() ([]int64, error) {
	if len(f.Timestamps) > 0 {
		return choropleth.Timestamps(f.Timestamps), nil
	}

	var all []int64
	add := func(key string) error {
		ts, err := parseTimestamp(key)
		if err != nil {
			return err
		}
		all = append(all, ts)
		return nil
	}
	for _, table := range []map[string]map[string]choropleth.Style{f.Styles, f.Highlights} {
		for _, byTime := range table {
			for key := range byTime {
				if err := add(key); err != nil {
					return nil, err
				}
			}
		}
	}
	for key := range f.Tooltips {
		if err := add(key); err != nil {
			return nil, err
		}
	}
	return choropleth.Timestamps(all), nil
}

// Options fills the data-dependent fields of base from the document and
// returns them with the timestamp set.
func (f *File) Options(fc *geojson.FeatureCollection, base choropleth.Options) (choropleth.Options, []int64, error) {
	opts := base
	timestamps, err := f.AllTimestamps()
	if err != nil {
		return opts, nil, err
	}
	if f.FeatureKey != "" {
		opts.FeatureKey = f.FeatureKey
	}

	if len(f.Styles) > 0 || f.DefaultStyle != nil || len(f.Highlights) > 0 || f.DefaultHighlight != nil {
		id, err := geojson.FindIdentifier(fc, opts.FeatureKey)
		if err != nil {
			return opts, nil, err
		}
		if len(f.Styles) > 0 || f.DefaultStyle != nil {
			if opts.StyleFunction, err = styleFunc(id, f.Styles, f.DefaultStyle, timestamps); err != nil {
				return opts, nil, fmt.Errorf("styles: %w", err)
			}
		}
		if len(f.Highlights) > 0 || f.DefaultHighlight != nil {
			if opts.HighlightFunction, err = styleFunc(id, f.Highlights, f.DefaultHighlight, timestamps); err != nil {
				return opts, nil, fmt.Errorf("highlights: %w", err)
			}
		}
	}

	if f.Tooltips != nil {
		opts.Tooltips = make(map[int64]choropleth.TooltipSpec, len(f.Tooltips))
		for key, raw := range f.Tooltips {
			ts, err := parseTimestamp(key)
			if err != nil {
				return opts, nil, fmt.Errorf("tooltips: %w", err)
			}
			spec, err := choropleth.ParseTooltipSpec(raw)
			if err != nil {
				return opts, nil, fmt.Errorf("tooltips[%d]: %w", ts, err)
			}
			opts.Tooltips[ts] = spec
		}
	}

	if f.Popup != nil {
		opts.Popup = &choropleth.GeoJSONPopup{
			Detail: choropleth.Detail{
				Fields:     f.Popup.Fields,
				Aliases:    f.Popup.Aliases,
				HideLabels: f.Popup.HideLabels,
				Localize:   f.Popup.Localize,
				Style:      f.Popup.Style,
			},
			ClassName: f.Popup.ClassName,
			Options:   f.Popup.Options,
		}
	}

	if f.Marker != nil {
		m, err := f.Marker.toChoropleth()
		if err != nil {
			return opts, nil, err
		}
		opts.Marker = m
	}
	return opts, timestamps, nil
}

func styleFunc(id geojson.Identifier, table map[string]map[string]choropleth.Style, fallback choropleth.Style, timestamps []int64) (choropleth.StyleFunc, error) {
	parsed := make(map[string]map[int64]choropleth.Style, len(table))
	for feature, byTime := range table {
		m := make(map[int64]choropleth.Style, len(byTime))
		for key, style := range byTime {
			ts, err := parseTimestamp(key)
			if err != nil {
				return nil, fmt.Errorf("feature %s: %w", feature, err)
			}
			m[ts] = style
		}
		parsed[feature] = m
	}

	// Numeric keys are also indexed by their canonical form so "1" in the
	// table matches an identifier written as 1.0 in the GeoJSON.
	numeric := make(map[string]string)
	for feature := range parsed {
		canon, ok := canonicalNumber(feature)
		if !ok {
			continue
		}
		if prev, seen := numeric[canon]; seen && prev == canon {
			continue
		}
		numeric[canon] = feature
	}

	return func(feat geojson.Feature) map[int64]choropleth.Style {
		v := id.Value(feat)
		if m, ok := parsed[fmt.Sprint(v)]; ok {
			return m
		}
		if canon, ok := numericKey(v); ok {
			if feature, ok := numeric[canon]; ok {
				return parsed[feature]
			}
		}
		if fallback == nil {
			return nil
		}
		m := make(map[int64]choropleth.Style, len(timestamps))
		for _, ts := range timestamps {
			m[ts] = fallback
		}
		return m
	}, nil
}

var markerKinds = map[string]choropleth.MarkerKind{
	"circle":        choropleth.MarkerCircle,
	"circle_marker": choropleth.MarkerCircleMarker,
	"marker":        choropleth.MarkerPin,
}

var iconKinds = map[string]choropleth.IconKind{
	"icon":        choropleth.IconAwesome,
	"awesome":     choropleth.IconAwesome,
	"div_icon":    choropleth.IconDiv,
	"custom_icon": choropleth.IconCustom,
}

func (m *Marker) toChoropleth() (*choropleth.Marker, error) {
	kind, ok := markerKinds[m.Kind]
	if !ok {
		return nil, fmt.Errorf("marker: unknown kind %q (want one of %v)", m.Kind, slices.Sorted(maps.Keys(markerKinds)))
	}
	out := &choropleth.Marker{Kind: kind, Options: m.Options}
	if m.Icon != nil {
		ik, ok := iconKinds[m.Icon.Kind]
		if !ok {
			return nil, fmt.Errorf("marker icon: unknown kind %q (want one of %v)", m.Icon.Kind, slices.Sorted(maps.Keys(iconKinds)))
		}
		out.Icon = &choropleth.Icon{Kind: ik, Options: m.Icon.Options}
	}
	return out, nil
}

func parseTimestamp(key string) (int64, error) {
	ts, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", key, err)
	}
	return ts, nil
}

// numericKey returns the canonical form of a numeric identifier value.
// String identifiers are never treated as numbers, so "01" stays distinct.
func numericKey(v any) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		return canonicalNumber(n.String())
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}

func canonicalNumber(s string) (string, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}
