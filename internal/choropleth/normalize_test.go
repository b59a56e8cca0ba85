package choropleth

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeTooltips(t *testing.T) {
	tests := []struct {
		name     string
		regions  int
		spec     TooltipSpec
		validate func(t *testing.T, got NormalizedTooltip)
	}{
		{
			name:    "plain string broadcasts to every feature",
			regions: 2,
			spec:    Text("Hello"),
			validate: func(t *testing.T, got NormalizedTooltip) {
				if got.Kind != KindList {
					t.Fatalf("expected list, got %s", got.Kind)
				}
				if len(got.Entries) != 2 {
					t.Fatalf("expected 2 entries, got %d", len(got.Entries))
				}
				for i, e := range got.Entries {
					if e.Text != "Hello" {
						t.Errorf("entry %d: expected Hello, got %q", i, e.Text)
					}
					if e.Style != nil {
						t.Errorf("entry %d: expected nil style, got %q", i, *e.Style)
					}
					if e.Options["sticky"] != true {
						t.Errorf("entry %d: expected sticky option, got %v", i, e.Options)
					}
				}
			},
		},
		{
			name:    "list keeps positions and styles",
			regions: 2,
			spec:    TooltipList{Text("first"), &Tooltip{Text: "second", Style: "color: red", Options: map[string]any{"direction": "top"}}},
			validate: func(t *testing.T, got NormalizedTooltip) {
				if got.Kind != KindList || len(got.Entries) != 2 {
					t.Fatalf("expected 2 list entries, got %+v", got)
				}
				if got.Entries[0].Text != "first" || got.Entries[0].Style != nil {
					t.Errorf("unexpected first entry: %+v", got.Entries[0])
				}
				second := got.Entries[1]
				if second.Text != "second" || second.Style == nil || *second.Style != "color: red" {
					t.Errorf("unexpected second entry: %+v", second)
				}
				if second.Options["direction"] != "top" || second.Options["sticky"] != true {
					t.Errorf("unexpected options: %v", second.Options)
				}
			},
		},
		{
			name:    "structured tooltip renders once",
			regions: 50,
			spec:    &GeoJSONTooltip{Detail: Detail{Fields: []string{"name"}, Aliases: []string{"State"}}},
			validate: func(t *testing.T, got NormalizedTooltip) {
				if got.Kind != KindSingle {
					t.Fatalf("expected single, got %s", got.Kind)
				}
				if len(got.Entries) != 0 {
					t.Errorf("expected no entries, got %d", len(got.Entries))
				}
				if got.Text == nil || !strings.HasPrefix(*got.Text, "function(layer)") {
					t.Fatalf("expected content function, got %v", got.Text)
				}
				if !got.Script {
					t.Error("expected Script to be set")
				}
				if got.Options["className"] != "foliumtooltip" {
					t.Errorf("unexpected options: %v", got.Options)
				}
			},
		},
		{
			name:    "plain tooltip object is not broadcast",
			regions: 3,
			spec:    &Tooltip{Text: "everywhere"},
			validate: func(t *testing.T, got NormalizedTooltip) {
				if got.Kind != KindSingle {
					t.Fatalf("expected single, got %s", got.Kind)
				}
				if got.Text == nil || *got.Text != "everywhere" {
					t.Errorf("unexpected text: %v", got.Text)
				}
				if got.Script {
					t.Error("plain tooltip must not be a script")
				}
			},
		},
		{
			name:    "nil spec",
			regions: 2,
			spec:    nil,
			validate: func(t *testing.T, got NormalizedTooltip) {
				if got.Kind != KindSingle || got.Text != nil || got.Options != nil {
					t.Errorf("expected empty single, got %+v", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NormalizeTooltips(tt.regions, []int64{10}, map[int64]TooltipSpec{10: tt.spec})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(table) != 1 {
				t.Fatalf("expected one entry, got %d", len(table))
			}
			tt.validate(t, table[10])
		})
	}
}

func TestNormalizeTooltipsNotRequested(t *testing.T) {
	table, err := NormalizeTooltips(2, []int64{1, 2}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table != nil {
		t.Errorf("expected nil table, got %v", table)
	}
}

func TestNormalizeTooltipsErrors(t *testing.T) {
	t.Run("list length mismatch", func(t *testing.T) {
		_, err := NormalizeTooltips(2, []int64{10}, map[int64]TooltipSpec{
			10: TooltipList{Text("a"), Text("b"), Text("c")},
		})
		var mismatch *FeatureCountMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected FeatureCountMismatchError, got %v", err)
		}
		if mismatch.Got != 3 || mismatch.Want != 2 || mismatch.Timestamp != 10 {
			t.Errorf("unexpected error fields: %+v", mismatch)
		}
	})

	t.Run("missing timestamp", func(t *testing.T) {
		_, err := NormalizeTooltips(2, []int64{10, 20}, map[int64]TooltipSpec{10: Text("a")})
		var missing *MissingTimestampError
		if !errors.As(err, &missing) {
			t.Fatalf("expected MissingTimestampError, got %v", err)
		}
		if missing.Timestamp != 20 || missing.Table != "tooltip" {
			t.Errorf("unexpected error fields: %+v", missing)
		}
	})

	t.Run("nil list item", func(t *testing.T) {
		_, err := NormalizeTooltips(2, []int64{10}, map[int64]TooltipSpec{
			10: TooltipList{Text("a"), nil},
		})
		var invalid *InvalidTooltipSpecError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTooltipSpecError, got %v", err)
		}
	})

	t.Run("unsupported variant", func(t *testing.T) {
		type wrapped struct{ Text }
		_, err := NormalizeTooltips(1, []int64{10}, map[int64]TooltipSpec{10: wrapped{"x"}})
		var invalid *InvalidTooltipSpecError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTooltipSpecError, got %v", err)
		}
	})

	t.Run("aliases do not match fields", func(t *testing.T) {
		_, err := NormalizeTooltips(1, []int64{10}, map[int64]TooltipSpec{
			10: &GeoJSONTooltip{Detail: Detail{Fields: []string{"a", "b"}, Aliases: []string{"A"}}},
		})
		var invalid *InvalidTooltipSpecError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTooltipSpecError, got %v", err)
		}
	})
}

func TestNormalizedTooltipJSON(t *testing.T) {
	table, err := NormalizeTooltips(2, []int64{10, 20}, map[int64]TooltipSpec{
		10: Text("Hello"),
		20: nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	list := decoded["10"]
	if list["type"] != "list" {
		t.Errorf("expected list type, got %v", list["type"])
	}
	entries, ok := list["tooltip"].([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("expected 2 tooltip entries, got %v", list["tooltip"])
	}
	first := entries[0].(map[string]any)
	if first["text"] != "Hello" || first["style"] != nil {
		t.Errorf("unexpected entry: %v", first)
	}

	single := decoded["20"]
	if single["type"] != "single" || single["tooltip"] != nil || single["options"] != nil {
		t.Errorf("unexpected single entry: %v", single)
	}
}
