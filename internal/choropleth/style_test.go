package choropleth

import (
	"errors"
	"strings"
	"testing"

	"github.com/Zachdehooge/choropleth-slider/internal/geojson"
)

func threeRegions() *geojson.FeatureCollection {
	return &geojson.FeatureCollection{
		Type: "FeatureCollection",
		Features: []geojson.Feature{
			{Type: "Feature", ID: "AL", Properties: map[string]any{"name": "Alabama"}},
			{Type: "Feature", ID: "GA", Properties: map[string]any{"name": "Georgia"}},
			{Type: "Feature", ID: "TN", Properties: map[string]any{"name": "Tennessee"}},
		},
	}
}

func TestBuildStyleMap(t *testing.T) {
	fc := threeRegions()
	id := geojson.Identifier{Expr: "feature.id"}

	red := Style{"color": "red"}
	blue := Style{"color": "blue"}
	fn := func(f geojson.Feature) map[int64]Style {
		if f.ID == "GA" {
			return map[int64]Style{1: red, 2: red, 99: blue}
		}
		return map[int64]Style{1: blue, 2: red}
	}

	sm, err := BuildStyleMap("style", fc, id, []int64{1, 2}, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantDefault := `{"1":{"color":"blue"},"2":{"color":"red"}}`
	if sm.Default != wantDefault {
		t.Errorf("expected default %s, got %s", wantDefault, sm.Default)
	}
	if len(sm.Groups) != 1 {
		t.Fatalf("expected 1 non-default group, got %d", len(sm.Groups))
	}
	g := sm.Groups[0]
	if len(g.IDs) != 1 || g.IDs[0] != "GA" {
		t.Errorf("expected GA only, got %v", g.IDs)
	}
	if strings.Contains(g.Table, "99") {
		t.Errorf("timestamps outside the set must be dropped: %s", g.Table)
	}
}

func TestBuildStyleMapMissingTimestamp(t *testing.T) {
	fn := func(f geojson.Feature) map[int64]Style {
		return map[int64]Style{1: {"color": "red"}}
	}
	_, err := BuildStyleMap("highlight", threeRegions(), geojson.Identifier{Expr: "feature.id"}, []int64{1, 2}, fn)

	var missing *MissingTimestampError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingTimestampError, got %v", err)
	}
	if missing.Table != "highlight" || missing.Timestamp != 2 || missing.Feature != "AL" {
		t.Errorf("unexpected error fields: %+v", missing)
	}
}

func TestBuildStyleMapEmpty(t *testing.T) {
	fc := &geojson.FeatureCollection{Features: []geojson.Feature{}}
	sm, err := BuildStyleMap("style", fc, geojson.Identifier{Expr: "feature.id"}, []int64{1}, func(geojson.Feature) map[int64]Style { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm.Default != "{}" || len(sm.Groups) != 0 {
		t.Errorf("unexpected style map: %+v", sm)
	}
}
