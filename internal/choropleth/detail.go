package choropleth

import (
	"fmt"
	"maps"
	"strings"
)

// GeoJSONPopup shows a property table when a feature is clicked.
type GeoJSONPopup struct {
	Detail
	// ClassName defaults to "foliumpopup".
	ClassName string
	Options   map[string]any
}

// PopupOptions returns the bindPopup options with defaults applied.
func (p *GeoJSONPopup) PopupOptions() map[string]any {
	className := p.ClassName
	if className == "" {
		className = "foliumpopup"
	}
	opts := map[string]any{"className": className}
	maps.Copy(opts, p.Options)
	return opts
}

type detailView struct {
	Fields   []string
	Aliases  []string
	Labels   bool
	Localize bool
	Style    string
}

func (d Detail) render() (string, error) {
	aliases := d.Aliases
	if len(aliases) == 0 {
		aliases = d.Fields
	}
	if len(aliases) != len(d.Fields) {
		return "", &InvalidTooltipSpecError{
			Reason: fmt.Sprintf("%d aliases given for %d fields", len(aliases), len(d.Fields)),
		}
	}

	var sb strings.Builder
	err := scriptTemplates.ExecuteTemplate(&sb, "detail", detailView{
		Fields:   d.Fields,
		Aliases:  aliases,
		Labels:   !d.HideLabels,
		Localize: d.Localize,
		Style:    d.Style,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render detail: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}
