package choropleth

import (
	"encoding/json"
	"fmt"
	"maps"
)

// TooltipSpec is what a caller supplies for one timestamp. It is one of
// *GeoJSONTooltip, *Tooltip, Text, TooltipList, or nil for no tooltip.
type TooltipSpec interface {
	tooltipSpec()
}

// TooltipItem is one element of a TooltipList: Text or *Tooltip.
type TooltipItem interface {
	TooltipSpec
	tooltipItem()
}

// Text is a literal tooltip string. Used on its own it is repeated for
// every feature.
type Text string

// TooltipList holds one tooltip per feature, in feature order.
type TooltipList []TooltipItem

// Tooltip is a plain reusable tooltip: fixed text, an optional CSS style
// for its wrapper and Leaflet tooltip options.
type Tooltip struct {
	Text  string
	Style string
	// Options are passed to bindTooltip. sticky defaults to true.
	Options map[string]any
}

// GeoJSONTooltip renders a table of feature properties.
type GeoJSONTooltip struct {
	Detail
	// ClassName defaults to "foliumtooltip".
	ClassName string
	Options   map[string]any
}

// Detail describes a property table shown for a feature.
type Detail struct {
	Fields []string
	// Aliases label the fields; they default to the field names.
	Aliases    []string
	HideLabels bool
	// Localize formats values with toLocaleString.
	Localize bool
	Style    string
}

func (Text) tooltipSpec()            {}
func (Text) tooltipItem()            {}
func (*Tooltip) tooltipSpec()        {}
func (*Tooltip) tooltipItem()        {}
func (TooltipList) tooltipSpec()     {}
func (*GeoJSONTooltip) tooltipSpec() {}

// TooltipOptions returns the bindTooltip options with defaults applied.
func (t *Tooltip) TooltipOptions() map[string]any {
	opts := map[string]any{"sticky": true}
	maps.Copy(opts, t.Options)
	return opts
}

// TooltipOptions returns the bindTooltip options with defaults applied.
func (t *GeoJSONTooltip) TooltipOptions() map[string]any {
	className := t.ClassName
	if className == "" {
		className = "foliumtooltip"
	}
	opts := map[string]any{"sticky": true, "className": className}
	maps.Copy(opts, t.Options)
	return opts
}

// Render returns the JavaScript content function Leaflet calls with the
// hovered layer.
func (t *GeoJSONTooltip) Render() (string, error) {
	return t.Detail.render()
}

// ParseTooltipSpec converts a loosely typed decoded value (from YAML or
// JSON) into a TooltipSpec:
//
//	nil                        -> nil
//	string                     -> Text
//	[]any                      -> TooltipList of strings or {text: ...} maps
//	map with "fields"          -> *GeoJSONTooltip
//	map with "text"            -> *Tooltip
func ParseTooltipSpec(v any) (TooltipSpec, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return Text(val), nil
	case []any:
		list := make(TooltipList, 0, len(val))
		for i, elem := range val {
			item, err := parseTooltipItem(elem)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			list = append(list, item)
		}
		return list, nil
	case map[string]any:
		if _, ok := val["fields"]; ok {
			return parseGeoJSONTooltip(val)
		}
		if _, ok := val["text"]; ok {
			return parseTooltip(val)
		}
		return nil, &InvalidTooltipSpecError{Reason: "object needs either \"fields\" or \"text\""}
	default:
		return nil, &InvalidTooltipSpecError{Reason: fmt.Sprintf("unsupported value of type %T", v)}
	}
}

func parseTooltipItem(v any) (TooltipItem, error) {
	switch val := v.(type) {
	case string:
		return Text(val), nil
	case map[string]any:
		if _, ok := val["text"]; ok {
			return parseTooltip(val)
		}
		return nil, &InvalidTooltipSpecError{Reason: "list items must be strings or objects with \"text\""}
	default:
		return nil, &InvalidTooltipSpecError{Reason: fmt.Sprintf("unsupported list item of type %T", v)}
	}
}

// tooltipFields is the wire shape shared by both tooltip objects.
type tooltipFields struct {
	Text       *string        `json:"text"`
	Style      string         `json:"style"`
	Fields     []string       `json:"fields"`
	Aliases    []string       `json:"aliases"`
	HideLabels bool           `json:"hide_labels"`
	Localize   bool           `json:"localize"`
	ClassName  string         `json:"class_name"`
	Options    map[string]any `json:"options"`
}

func decodeTooltipFields(m map[string]any) (tooltipFields, error) {
	var tf tooltipFields
	raw, err := json.Marshal(m)
	if err != nil {
		return tf, &InvalidTooltipSpecError{Reason: err.Error()}
	}
	if err := json.Unmarshal(raw, &tf); err != nil {
		return tf, &InvalidTooltipSpecError{Reason: err.Error()}
	}
	return tf, nil
}

func parseTooltip(m map[string]any) (*Tooltip, error) {
	tf, err := decodeTooltipFields(m)
	if err != nil {
		return nil, err
	}
	if tf.Text == nil {
		return nil, &InvalidTooltipSpecError{Reason: "tooltip text must be a string"}
	}
	return &Tooltip{Text: *tf.Text, Style: tf.Style, Options: tf.Options}, nil
}

func parseGeoJSONTooltip(m map[string]any) (*GeoJSONTooltip, error) {
	tf, err := decodeTooltipFields(m)
	if err != nil {
		return nil, err
	}
	return &GeoJSONTooltip{
		Detail: Detail{
			Fields:     tf.Fields,
			Aliases:    tf.Aliases,
			HideLabels: tf.HideLabels,
			Localize:   tf.Localize,
			Style:      tf.Style,
		},
		ClassName: tf.ClassName,
		Options:   tf.Options,
	}, nil
}
