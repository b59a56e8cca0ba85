// Package choropleth generates the client script for a time-slider
// choropleth layer: a d3 range slider walks a sorted set of timestamps
// and restyles a Leaflet GeoJSON layer, rebinding tooltips per frame.
package choropleth

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/Zachdehooge/choropleth-slider/internal/geojson"
)

// Options configures a TimeSliderChoropleth. Start from DefaultOptions.
type Options struct {
	// Name is the label shown in layer controls. Defaults to the
	// generated variable name.
	Name    string
	Overlay bool
	Control bool
	Show    bool

	SmoothFactor *float64

	StyleFunction     StyleFunc
	HighlightFunction StyleFunc
	// FeatureKey selects feature.properties[FeatureKey] as the identifier
	// style tables are keyed by.
	FeatureKey string

	// Tooltips holds one spec per timestamp. Nil disables tooltips.
	Tooltips map[int64]TooltipSpec
	Popup    *GeoJSONPopup
	Marker   *Marker

	// Embed inlines the data. When false the browser fetches EmbedURL.
	Embed    bool
	EmbedURL string

	ZoomOnClick bool

	// MapName is the JavaScript variable of the parent Leaflet map.
	MapName string
	// ID is the script variable name; a random one is generated if empty.
	ID string

	Renderer ScriptRenderer
}

// DefaultOptions returns options for an embedded, visible overlay that
// appears in layer controls.
func DefaultOptions() Options {
	return Options{
		Overlay: true,
		Control: true,
		Show:    true,
		Embed:   true,
		MapName: "map",
	}
}

// TimeSliderChoropleth holds the data computed once at construction.
// It is read-only afterwards.
type TimeSliderChoropleth struct {
	name       string
	opts       Options
	data       *geojson.FeatureCollection
	timestamps []int64
	tooltips   map[int64]NormalizedTooltip
	identifier geojson.Identifier
	style      *StyleMap
	highlight  *StyleMap
	marker     *Marker
	popup      *PopupBinding
	renderer   ScriptRenderer
}

// New validates the inputs and computes the timestamp set, style maps
// and tooltip table.
func New(data *geojson.FeatureCollection, timestamps []int64, opts Options) (*TimeSliderChoropleth, error) {
	if data == nil {
		return nil, ErrNoData
	}

	ts := Timestamps(timestamps)
	if len(ts) == 0 {
		return nil, ErrNoTimestamps
	}
	if !opts.Embed && opts.EmbedURL == "" {
		return nil, ErrEmbedRequiresURL
	}

	c := &TimeSliderChoropleth{
		name:       opts.ID,
		opts:       opts,
		data:       data,
		timestamps: ts,
		renderer:   opts.Renderer,
	}
	if c.name == "" {
		c.name = "time_slider_choropleth_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if c.opts.MapName == "" {
		c.opts.MapName = "map"
	}
	if c.renderer == nil {
		c.renderer = TemplateRenderer{}
	}

	if opts.Marker != nil {
		m, err := opts.Marker.normalized()
		if err != nil {
			return nil, err
		}
		c.marker = m
	}

	if opts.StyleFunction != nil || opts.HighlightFunction != nil {
		id, err := geojson.FindIdentifier(data, opts.FeatureKey)
		if err != nil {
			return nil, err
		}
		c.identifier = id
	}
	if opts.StyleFunction != nil {
		sm, err := BuildStyleMap("style", data, c.identifier, ts, opts.StyleFunction)
		if err != nil {
			return nil, err
		}
		c.style = sm
	}
	if opts.HighlightFunction != nil {
		sm, err := BuildStyleMap("highlight", data, c.identifier, ts, opts.HighlightFunction)
		if err != nil {
			return nil, err
		}
		c.highlight = sm
	}

	tooltips, err := NormalizeTooltips(len(data.Features), ts, opts.Tooltips)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize tooltips: %w", err)
	}
	c.tooltips = tooltips

	if opts.Popup != nil {
		src, err := opts.Popup.Detail.render()
		if err != nil {
			return nil, fmt.Errorf("failed to render popup: %w", err)
		}
		c.popup = &PopupBinding{Source: src, Options: opts.Popup.PopupOptions()}
	}

	slog.Debug("time slider choropleth built",
		"component", "choropleth",
		"name", c.name,
		"features", len(data.Features),
		"timestamps", len(ts),
		"tooltips", tooltips != nil)
	return c, nil
}

// Name is the script variable of the layer.
func (c *TimeSliderChoropleth) Name() string { return c.name }

// LayerName is the label used in layer controls.
func (c *TimeSliderChoropleth) LayerName() string {
	if c.opts.Name != "" {
		return c.opts.Name
	}
	return c.name
}

func (c *TimeSliderChoropleth) Overlay() bool   { return c.opts.Overlay }
func (c *TimeSliderChoropleth) Control() bool   { return c.opts.Control }
func (c *TimeSliderChoropleth) Show() bool      { return c.opts.Show }
func (c *TimeSliderChoropleth) MapName() string { return c.opts.MapName }
func (c *TimeSliderChoropleth) NumRegions() int { return len(c.data.Features) }

// Timestamps returns a copy of the sorted timestamp set.
func (c *TimeSliderChoropleth) Timestamps() []int64 { return slices.Clone(c.timestamps) }

// Tooltips returns a copy of the normalized tooltip table, nil when
// tooltips were not requested.
func (c *TimeSliderChoropleth) Tooltips() map[int64]NormalizedTooltip {
	if c.tooltips == nil {
		return nil
	}
	return maps.Clone(c.tooltips)
}

// Asset is an external script or stylesheet the layer depends on.
type Asset struct {
	Name string
	URL  string
}

// JS lists the scripts the page must load besides Leaflet.
func (c *TimeSliderChoropleth) JS() []Asset {
	js := []Asset{{Name: "d3v4", URL: "https://d3js.org/d3.v4.min.js"}}
	if c.marker != nil && c.marker.Icon != nil && c.marker.Icon.Kind == IconAwesome {
		js = append(js, Asset{
			Name: "leaflet.awesome-markers",
			URL:  "https://cdnjs.cloudflare.com/ajax/libs/Leaflet.awesome-markers/2.0.2/leaflet.awesome-markers.js",
		})
	}
	return js
}

// CSS lists the stylesheets the page must load besides Leaflet.
func (c *TimeSliderChoropleth) CSS() []Asset {
	if c.marker == nil || c.marker.Icon == nil || c.marker.Icon.Kind != IconAwesome {
		return nil
	}
	return []Asset{
		{Name: "awesome_markers_css", URL: "https://cdnjs.cloudflare.com/ajax/libs/Leaflet.awesome-markers/2.0.2/leaflet.awesome-markers.css"},
		{Name: "awesome_markers_font_css", URL: "https://cdn.jsdelivr.net/npm/@fortawesome/fontawesome-free@6.2.0/css/all.min.css"},
		{Name: "glyphicons_css", URL: "https://netdna.bootstrapcdn.com/bootstrap/3.0.0/css/bootstrap-glyphicons.css"},
	}
}

func (c *TimeSliderChoropleth) scriptData() *ScriptData {
	d := &ScriptData{
		Name:         c.name,
		MapName:      c.opts.MapName,
		Timestamps:   c.timestamps,
		HasTooltips:  c.tooltips != nil,
		Tooltips:     c.tooltips,
		Marker:       c.marker,
		Popup:        c.popup,
		SmoothFactor: c.opts.SmoothFactor,
		ZoomOnClick:  c.opts.ZoomOnClick,
		Show:         c.opts.Show,
		Embed:        c.opts.Embed,
		Data:         c.data,
		EmbedURL:     c.opts.EmbedURL,
	}
	for _, ts := range c.timestamps {
		if t, ok := c.tooltips[ts]; ok && t.Script && t.Text != nil {
			d.TooltipRenderers = append(d.TooltipRenderers, TooltipRenderer{Timestamp: ts, Source: *t.Text})
		}
	}
	if c.style != nil {
		d.Styler = &Styler{Func: c.name + "_styler", Identifier: c.identifier.Expr, Var: c.name + "_timestamp", Map: c.style}
	}
	if c.highlight != nil {
		d.Highlighter = &Styler{Func: c.name + "_highlighter", Identifier: c.identifier.Expr, Var: c.name + "_timestamp", Map: c.highlight}
	}
	return d
}

// Render writes the client script to w. Nothing is written when
// rendering fails.
func (c *TimeSliderChoropleth) Render(w io.Writer) error {
	var buf bytes.Buffer
	if err := c.renderer.RenderScript(&buf, c.scriptData()); err != nil {
		return fmt.Errorf("failed to render script: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Script renders the client script to a string.
func (c *TimeSliderChoropleth) Script() (string, error) {
	var sb strings.Builder
	if err := c.Render(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
