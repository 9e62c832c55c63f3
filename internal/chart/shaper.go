// Package chart shapes aggregates into ordered label/value series and
// proportional slices ready for rendering. Pure transforms, no I/O.
package chart

import (
	"math"

	"ledgerdesk/internal/analytics"
)

// ValueSource selects which bucket figure feeds a series.
type ValueSource int

const (
	SourceTotal ValueSource = iota
	SourceCount
)

type (
	// Point is one bar/line entry: a short month label and a value
	// rounded to the nearest integer.
	Point struct {
		Label string `json:"label"`
		Value int    `json:"value"`
	}

	// Slice is one proportional entry of a donut/pie.
	Slice struct {
		Label   string `json:"label"`
		Percent int    `json:"percent"`
	}
)

// Series converts monthly buckets into chart points, preserving order.
// Labels are three-letter month names.
func Series(buckets []analytics.Bucket, src ValueSource) []Point {
	out := make([]Point, 0, len(buckets))
	for _, b := range buckets {
		v := b.Total
		if src == SourceCount {
			v = float64(b.Count)
		}
		out = append(out, Point{
			Label: b.Month.String()[:3],
			Value: int(math.Round(v)),
		})
	}
	return out
}

// Trailing keeps the last n buckets of an ascending series; n <= 0
// keeps everything.
func Trailing(buckets []analytics.Bucket, n int) []analytics.Bucket {
	if n <= 0 || n >= len(buckets) {
		return buckets
	}
	return buckets[len(buckets)-n:]
}

// Proportions converts category counts into rounded percentage slices.
// A zero-total input yields 0% for every slice.
func Proportions(counts []analytics.CategoryCount) []Slice {
	var total int
	for _, c := range counts {
		total += c.Count
	}
	out := make([]Slice, 0, len(counts))
	for _, c := range counts {
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(c.Count) / float64(total) * 100))
		}
		out = append(out, Slice{Label: c.Label, Percent: pct})
	}
	return out
}
