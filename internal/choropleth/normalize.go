package choropleth

import (
	"encoding/json"
	"fmt"
	"slices"
)

// TooltipKind tags a NormalizedTooltip.
type TooltipKind string

const (
	// KindSingle binds one tooltip to the whole layer.
	KindSingle TooltipKind = "single"
	// KindList binds one tooltip per feature.
	KindList TooltipKind = "list"
)

// NormalizedTooltip is the uniform per-timestamp tooltip the script
// consumes.
type NormalizedTooltip struct {
	Kind TooltipKind

	// Single. Text and Options are nil when there is no tooltip.
	Text    *string
	Options map[string]any
	// Script marks Text as a JavaScript content function rather than
	// literal markup.
	Script bool

	// List, positionally aligned with the features.
	Entries []TooltipEntry
}

// TooltipEntry is one feature's tooltip in a list.
type TooltipEntry struct {
	Text    string         `json:"text"`
	Options map[string]any `json:"options"`
	Style   *string        `json:"style"`
}

// MarshalJSON produces {"type":"single","tooltip":...,"options":...} or
// {"type":"list","tooltip":[...]}.
func (n NormalizedTooltip) MarshalJSON() ([]byte, error) {
	if n.Kind == KindList {
		return json.Marshal(struct {
			Type    TooltipKind    `json:"type"`
			Tooltip []TooltipEntry `json:"tooltip"`
		}{KindList, n.Entries})
	}
	return json.Marshal(struct {
		Type    TooltipKind    `json:"type"`
		Tooltip *string        `json:"tooltip"`
		Options map[string]any `json:"options"`
	}{KindSingle, n.Text, n.Options})
}

// NormalizeTooltips turns the caller's per-timestamp tooltip specs into
// one NormalizedTooltip per timestamp. A nil specs map means tooltips are
// not requested and yields a nil table. Every timestamp must be present
// in specs; extra keys are ignored.
func NormalizeTooltips(numRegions int, timestamps []int64, specs map[int64]TooltipSpec) (map[int64]NormalizedTooltip, error) {
	if specs == nil {
		return nil, nil
	}

	table := make(map[int64]NormalizedTooltip, len(timestamps))
	for _, ts := range timestamps {
		spec, ok := specs[ts]
		if !ok {
			return nil, &MissingTimestampError{Table: "tooltip", Timestamp: ts}
		}
		entry, err := normalizeTooltip(numRegions, ts, spec)
		if err != nil {
			return nil, fmt.Errorf("timestamp %d: %w", ts, err)
		}
		table[ts] = entry
	}
	return table, nil
}

func normalizeTooltip(numRegions int, ts int64, spec TooltipSpec) (NormalizedTooltip, error) {
	var items []TooltipItem

	switch s := spec.(type) {
	case nil:
		return NormalizedTooltip{Kind: KindSingle}, nil
	case *GeoJSONTooltip:
		if s == nil {
			return NormalizedTooltip{Kind: KindSingle}, nil
		}
		text, err := s.Render()
		if err != nil {
			return NormalizedTooltip{}, err
		}
		return NormalizedTooltip{Kind: KindSingle, Text: &text, Options: s.TooltipOptions(), Script: true}, nil
	case *Tooltip:
		if s == nil {
			return NormalizedTooltip{Kind: KindSingle}, nil
		}
		text := s.Text
		return NormalizedTooltip{Kind: KindSingle, Text: &text, Options: s.TooltipOptions()}, nil
	case Text:
		items = slices.Repeat([]TooltipItem{s}, numRegions)
	case TooltipList:
		if len(s) != numRegions {
			return NormalizedTooltip{}, &FeatureCountMismatchError{Timestamp: ts, Got: len(s), Want: numRegions}
		}
		items = s
	default:
		return NormalizedTooltip{}, &InvalidTooltipSpecError{Reason: fmt.Sprintf("unsupported tooltip type %T", spec)}
	}

	entries := make([]TooltipEntry, len(items))
	for i, item := range items {
		var tt *Tooltip
		switch it := item.(type) {
		case Text:
			tt = &Tooltip{Text: string(it)}
		case *Tooltip:
			tt = it
		}
		if tt == nil {
			return NormalizedTooltip{}, &InvalidTooltipSpecError{Reason: fmt.Sprintf("list item %d is %T", i, item)}
		}

		entry := TooltipEntry{Text: tt.Text, Options: tt.TooltipOptions()}
		if tt.Style != "" {
			style := tt.Style
			entry.Style = &style
		}
		entries[i] = entry
	}
	return NormalizedTooltip{Kind: KindList, Entries: entries}, nil
}
