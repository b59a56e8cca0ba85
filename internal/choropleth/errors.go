package choropleth

import (
	"errors"
	"fmt"
)

var (
	ErrNoData           = errors.New("choropleth: geometry data is required")
	ErrNoTimestamps     = errors.New("choropleth: at least one timestamp is required")
	ErrEmbedRequiresURL = errors.New("choropleth: disabling embed requires a data URL")
	ErrIconOnNonMarker  = errors.New("choropleth: icons are only supported on Marker")
)

// InvalidTooltipSpecError reports a tooltip value that is none of the
// supported shapes.
type InvalidTooltipSpecError struct {
	Reason string
}

func (e *InvalidTooltipSpecError) Error() string {
	return "invalid tooltip spec: " + e.Reason
}

// MissingTimestampError reports a lookup table (tooltip, style or
// highlight) that lacks a timestamp the slider iterates over.
type MissingTimestampError struct {
	Table     string
	Timestamp int64
	// Feature is the identifier of the offending feature for style tables.
	Feature any
}

func (e *MissingTimestampError) Error() string {
	if e.Feature != nil {
		return fmt.Sprintf("%s table for feature %v has no entry for timestamp %d", e.Table, e.Feature, e.Timestamp)
	}
	return fmt.Sprintf("%s table has no entry for timestamp %d", e.Table, e.Timestamp)
}

// FeatureCountMismatchError reports a per-feature tooltip list whose
// length differs from the number of features.
type FeatureCountMismatchError struct {
	Timestamp int64
	Got       int
	Want      int
}

func (e *FeatureCountMismatchError) Error() string {
	return fmt.Sprintf("tooltip list for timestamp %d has %d entries, data has %d features", e.Timestamp, e.Got, e.Want)
}
