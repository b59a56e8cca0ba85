package choropleth

import "slices"

// Timestamps returns the unique values of in, ascending. The input is
// left untouched.
func Timestamps(in []int64) []int64 {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
