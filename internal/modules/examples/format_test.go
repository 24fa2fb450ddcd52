// README: Cache key canonicalization and prompt formatting tests per tier.
package examples

import (
	"strings"
	"testing"
)

func TestCacheKey_Canonical(t *testing.T) {
	a := CacheKey("  Paris ", []string{"Food", "art", "food"})
	b := CacheKey("paris", []string{"ART", " food"})
	if a != "paris|art,food" {
		t.Fatalf("unexpected key %q", a)
	}
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if CacheKey("New  York", nil) != "new york|" {
		t.Fatalf("unexpected key %q", CacheKey("New  York", nil))
	}
	if ScopedKey(" U1 ", a) != "U1::paris|art,food" {
		t.Fatalf("unexpected scoped key %q", ScopedKey(" U1 ", a))
	}
}

func TestFormatForPrompt_Tiers(t *testing.T) {
	full := trip("f", "Paris", "art", "food")
	full.FlightSummary = "Air France direct"
	full.Highlights = []string{"Louvre"}
	cond := trip("c", "Lyon", "food", "wine", "markets", "cycling")
	cond.FlightSummary = "should not appear"
	sum := trip("s", "Oslo", "fjords")

	res := SelectionResult{
		Examples: []Scored{
			{Record: full, Tier: TierFull, Score: 0.9},
			{Record: cond, Tier: TierCondensed, Score: 0.5},
			{Record: sum, Tier: TierSummary, Score: 0.1},
		},
	}
	agg := Summarize([]*TripRecord{full, cond, sum})
	res.Aggregate = &agg

	out := FormatForPrompt(res)
	for _, want := range []string{
		"RELEVANT PAST TRIP", "Flight Booked: Air France direct", "Highlights Enjoyed: Louvre",
		"PAST TRIPS (Similar Interests)", "1. Lyon", "Interests: food, wine, markets",
		"USER TRAVEL PROFILE", "Total Trips: 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "should not appear") || strings.Contains(out, "   Interests: food, wine, markets, cycling") {
		t.Fatalf("condensed example leaked detail:\n%s", out)
	}
	if strings.Contains(out, "Oslo (") {
		t.Fatalf("summary example rendered individually:\n%s", out)
	}
}

func TestFormatForPrompt_NoHistory(t *testing.T) {
	if got := FormatForPrompt(SelectionResult{NoHistory: true}); got != NoHistoryText {
		t.Fatalf("got %q", got)
	}
	if got := FormatForPrompt(SelectionResult{}); got != NoHistoryText {
		t.Fatalf("got %q", got)
	}
}

func TestDescribe(t *testing.T) {
	res := SelectionResult{Examples: []Scored{{Record: trip("1", "Paris"), Tier: TierFull, Score: 0.75}}}
	lines := Describe(res)
	if len(lines) != 1 || lines[0] != "Paris [FULL] score=0.75 rating=3.0" {
		t.Fatalf("got %v", lines)
	}
}
