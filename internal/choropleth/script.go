package choropleth

import (
	"embed"
	"encoding/json"
	"io"
	"text/template"

	"github.com/Zachdehooge/choropleth-slider/internal/geojson"
)

// TemplateVersion identifies the revision of the embedded script
// templates. Bump it whenever templates/*.tmpl change shape.
const TemplateVersion = "2"

//go:embed templates/*.tmpl
var templateFS embed.FS

var scriptTemplates = template.Must(
	template.New("choropleth").Funcs(template.FuncMap{
		"toJSON": toJSON,
	}).ParseFS(templateFS, "templates/*.tmpl"),
)

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ScriptRenderer turns ScriptData into the client script.
type ScriptRenderer interface {
	RenderScript(w io.Writer, data *ScriptData) error
}

// TemplateRenderer renders the embedded templates.
type TemplateRenderer struct{}

func (TemplateRenderer) RenderScript(w io.Writer, data *ScriptData) error {
	return scriptTemplates.ExecuteTemplate(w, "script", data)
}

// ScriptData is everything the script template reads.
type ScriptData struct {
	Name       string
	MapName    string
	Timestamps []int64

	HasTooltips      bool
	Tooltips         map[int64]NormalizedTooltip
	TooltipRenderers []TooltipRenderer

	Styler      *Styler
	Highlighter *Styler
	Marker      *Marker
	Popup       *PopupBinding

	SmoothFactor *float64
	ZoomOnClick  bool
	Show         bool

	Embed    bool
	Data     *geojson.FeatureCollection
	EmbedURL string
}

// TooltipRenderer is a content function for a single structured tooltip.
type TooltipRenderer struct {
	Timestamp int64
	Source    string
}

// Styler is one generated switch function over the feature identifier.
type Styler struct {
	Func       string
	Identifier string
	// Var holds the active timestamp.
	Var string
	Map *StyleMap
}

// PopupBinding is a popup content function bound once to the layer.
type PopupBinding struct {
	Source  string
	Options map[string]any
}
