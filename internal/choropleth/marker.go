package choropleth

import (
	"fmt"
	"maps"
)

// MarkerKind names the Leaflet class used for point features.
type MarkerKind string

const (
	MarkerCircle       MarkerKind = "Circle"
	MarkerCircleMarker MarkerKind = "CircleMarker"
	MarkerPin          MarkerKind = "Marker"
)

// IconKind names the icon class placed on a MarkerPin.
type IconKind string

const (
	// IconAwesome is L.AwesomeMarkers.Icon.
	IconAwesome IconKind = "Icon"
	IconDiv     IconKind = "DivIcon"
	IconCustom  IconKind = "CustomIcon"
)

// Icon describes the icon of a MarkerPin.
type Icon struct {
	Kind    IconKind
	Options map[string]any
}

// Namespace is the JavaScript object the icon class lives on.
func (i *Icon) Namespace() string {
	if i.Kind == IconAwesome {
		return "L.AwesomeMarkers"
	}
	return "L"
}

// Marker formats point features. Style and highlight functions apply
// to it too.
type Marker struct {
	Kind    MarkerKind
	Options map[string]any
	Icon    *Icon
}

// normalized validates m and returns a copy with non-nil options.
func (m *Marker) normalized() (*Marker, error) {
	switch m.Kind {
	case MarkerCircle, MarkerCircleMarker, MarkerPin:
	default:
		return nil, fmt.Errorf("choropleth: unknown marker kind %q", m.Kind)
	}

	out := &Marker{Kind: m.Kind, Options: map[string]any{}}
	maps.Copy(out.Options, m.Options)

	if m.Icon != nil {
		if m.Kind != MarkerPin {
			return nil, fmt.Errorf("%w (got %s)", ErrIconOnNonMarker, m.Kind)
		}
		switch m.Icon.Kind {
		case IconAwesome, IconDiv, IconCustom:
		default:
			return nil, fmt.Errorf("choropleth: unknown icon kind %q", m.Icon.Kind)
		}
		out.Icon = &Icon{Kind: m.Icon.Kind, Options: map[string]any{}}
		maps.Copy(out.Icon.Options, m.Icon.Options)
	}
	return out, nil
}
