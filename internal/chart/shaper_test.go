package chart

import (
	"testing"
	"time"

	"ledgerdesk/internal/analytics"
)

func TestSeries(t *testing.T) {
	buckets := []analytics.Bucket{
		{Year: 2026, Month: time.January, Count: 2, Total: 150.4},
		{Year: 2026, Month: time.March, Count: 1, Total: 199.6},
	}

	points := Series(buckets, SourceTotal)
	if len(points) != 2 {
		t.Fatalf("points = %v", points)
	}
	if points[0].Label != "Jan" || points[0].Value != 150 {
		t.Errorf("first = %+v", points[0])
	}
	if points[1].Label != "Mar" || points[1].Value != 200 {
		t.Errorf("second = %+v", points[1])
	}

	counts := Series(buckets, SourceCount)
	if counts[0].Value != 2 || counts[1].Value != 1 {
		t.Errorf("count series = %v", counts)
	}
}

func TestTrailing(t *testing.T) {
	buckets := []analytics.Bucket{
		{Month: time.January}, {Month: time.February}, {Month: time.March},
	}

	if got := Trailing(buckets, 2); len(got) != 2 || got[0].Month != time.February {
		t.Errorf("Trailing(2) = %v", got)
	}
	if got := Trailing(buckets, 0); len(got) != 3 {
		t.Errorf("Trailing(0) = %v, want all", got)
	}
	if got := Trailing(buckets, 5); len(got) != 3 {
		t.Errorf("Trailing(5) = %v, want all", got)
	}
}

func TestProportions(t *testing.T) {
	counts := []analytics.CategoryCount{
		{Label: "deposit", Count: 3},
		{Label: "withdraw", Count: 1},
	}
	slices := Proportions(counts)
	if len(slices) != 2 {
		t.Fatalf("slices = %v", slices)
	}
	if slices[0].Label != "deposit" || slices[0].Percent != 75 {
		t.Errorf("first = %+v", slices[0])
	}
	if slices[1].Percent != 25 {
		t.Errorf("second = %+v", slices[1])
	}
}

func TestProportionsZeroTotal(t *testing.T) {
	slices := Proportions([]analytics.CategoryCount{{Label: "a"}, {Label: "b"}})
	for _, s := range slices {
		if s.Percent != 0 {
			t.Errorf("slice %q percent = %d, want 0", s.Label, s.Percent)
		}
	}
}
