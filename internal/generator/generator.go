package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/Zachdehooge/choropleth-slider/internal/choropleth"
)

const (
	leafletCSS = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"
	leafletJS  = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"
)

// Page describes the document around the layer.
type Page struct {
	Title       string
	Tiles       string
	Attribution string
	Center      [2]float64
	Zoom        int
}

// Layer is what the page needs from a time-slider layer.
type Layer interface {
	Name() string
	LayerName() string
	MapName() string
	Overlay() bool
	Control() bool
	JS() []choropleth.Asset
	CSS() []choropleth.Asset
	Render(w io.Writer) error
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"toJSON": toJSON,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
   <meta charset="UTF-8"/>
   <meta name="viewport" content="width=device-width, initial-scale=1.0"/>
   <title>{{.Title}}</title>
   <link rel="stylesheet" href="{{.LeafletCSS}}" />
{{- range .CSS}}
   <link rel="stylesheet" href="{{.URL}}" />
{{- end}}
   <script src="{{.LeafletJS}}"></script>
{{- range .JS}}
   <script src="{{.URL}}"></script>
{{- end}}
   <style>
      :root {
         --bg-color: #121212;
         --text-color: #e0e0e0;
      }
      body {
         font-family: Arial, sans-serif;
         margin: 0 auto;
         padding: 20px;
         background-color: var(--bg-color);
         color: var(--text-color);
      }
      h1 { color: var(--text-color); }
      .map { height: 600px; border-radius: 5px; }
      input[type=range] { width: 100%; }
   </style>
</head>
<body>
   <h1>{{.Title}}</h1>
   <div id="{{.MapID}}" class="map"></div>
   <script>
var {{.MapVar}} = L.map({{toJSON .MapID}}).setView({{toJSON .Center}}, {{toJSON .Zoom}});
L.tileLayer({{toJSON .Tiles}}, {attribution: {{toJSON .Attribution}}, maxZoom: 18}).addTo({{.MapVar}});
{{.Script}}
{{- if .Control}}
{{- if .Overlay}}
L.control.layers(null, {{.ControlEntry}}, {collapsed: false}).addTo({{.MapVar}});
{{- else}}
L.control.layers({{.ControlEntry}}, null, {collapsed: false}).addTo({{.MapVar}});
{{- end}}
{{- end}}
   </script>
</body>
</html>
`))

type pageData struct {
	Page
	LeafletCSS   string
	LeafletJS    string
	CSS          []choropleth.Asset
	JS           []choropleth.Asset
	MapID        string
	MapVar       template.JS
	Script       template.JS
	Control      bool
	Overlay      bool
	ControlEntry template.JS
}

func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

// RenderPage writes a standalone HTML page hosting the Leaflet map and
// the layer script. Nothing is written if the layer script fails.
func RenderPage(w io.Writer, page Page, layer Layer) error {
	var script bytes.Buffer
	if err := layer.Render(&script); err != nil {
		return err
	}

	data := pageData{
		Page:       page,
		LeafletCSS: leafletCSS,
		LeafletJS:  leafletJS,
		CSS:        layer.CSS(),
		JS:         layer.JS(),
		MapID:      layer.MapName(),
		MapVar:     template.JS(layer.MapName()),
		Script:     template.JS(script.String()),
		Control:    layer.Control(),
		Overlay:    layer.Overlay(),
	}
	if data.Control {
		name, err := toJSON(layer.LayerName())
		if err != nil {
			return err
		}
		data.ControlEntry = template.JS(fmt.Sprintf("{%s: %s}", name, layer.Name()))
	}

	return pageTemplate.Execute(w, data)
}

// GenerateMapHTML renders the page and atomically replaces outputPath, so
// a browser never reads a partial file.
func GenerateMapHTML(ctx context.Context, page Page, layer Layer, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := RenderPage(&buf, page, layer); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := atomic.WriteFile(outputPath, &buf); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	slog.Info("map written", "component", "generator", "path", outputPath, "bytes", buf.Len())
	return nil
}
