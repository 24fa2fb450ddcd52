// README: Renders selected examples into prompt text according to their detail tier.
package examples

import (
	"fmt"
	"strings"
)

const (
	condensedPreferences = 3
	summaryDestinations  = 5
	summaryPreferences   = 10
)

// NoHistoryText is injected when the user has no usable past trips.
const NoHistoryText = "No previous trips are on record for this traveler. Use widely applicable recommendations for the request below."

// FormatForPrompt renders a selection as a prompt block. FULL examples carry the
// whole trip, CONDENSED ones destination, dates, top interests and rating, and
// SUMMARY examples collapse into the aggregate travel profile.
func FormatForPrompt(res SelectionResult) string {
	if res.NoHistory || len(res.Examples) == 0 {
		return NoHistoryText
	}

	var full, condensed []Scored
	for _, ex := range res.Examples {
		if ex.Record == nil {
			continue
		}
		switch ex.Tier {
		case TierFull:
			full = append(full, ex)
		case TierCondensed:
			condensed = append(condensed, ex)
		}
	}

	var b strings.Builder
	for _, ex := range full {
		writeFull(&b, ex.Record)
	}
	if len(condensed) > 0 {
		b.WriteString("PAST TRIPS (Similar Interests):\n\n")
		for i, ex := range condensed {
			writeCondensed(&b, i+1, ex.Record)
		}
		b.WriteString("\nUse these preferences to guide your recommendations.\n\n")
	}
	if res.HasTier(TierSummary) && res.Aggregate != nil {
		writeAggregate(&b, *res.Aggregate)
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return NoHistoryText
	}
	return out
}

func writeFull(b *strings.Builder, r *TripRecord) {
	b.WriteString("RELEVANT PAST TRIP (High Similarity):\n\n")
	fmt.Fprintf(b, "Destination: %s\n", r.Destination)
	if r.Dates != "" {
		fmt.Fprintf(b, "Dates: %s\n", r.Dates)
	}
	fmt.Fprintf(b, "Preferences: %s\n", strings.Join(r.Preferences, ", "))
	fmt.Fprintf(b, "User Rating: %.1f/5\n", r.Rating())
	if r.FlightSummary != "" {
		fmt.Fprintf(b, "Flight Booked: %s\n", r.FlightSummary)
	}
	if r.HotelSummary != "" {
		fmt.Fprintf(b, "Hotel Booked: %s\n", r.HotelSummary)
	}
	if len(r.Highlights) > 0 {
		fmt.Fprintf(b, "Highlights Enjoyed: %s\n", strings.Join(r.Highlights, ", "))
	}
	b.WriteString("\nBased on this successful past trip, provide similar recommendations.\n\n")
}

func writeCondensed(b *strings.Builder, n int, r *TripRecord) {
	prefs := r.Preferences
	if len(prefs) > condensedPreferences {
		prefs = prefs[:condensedPreferences]
	}
	fmt.Fprintf(b, "%d. %s", n, r.Destination)
	if r.Dates != "" {
		fmt.Fprintf(b, " (%s)", r.Dates)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "   Interests: %s\n", strings.Join(prefs, ", "))
	fmt.Fprintf(b, "   Rating: %.1f/5\n", r.Rating())
}

func writeAggregate(b *strings.Builder, a Aggregate) {
	b.WriteString("USER TRAVEL PROFILE:\n\n")
	fmt.Fprintf(b, "Total Trips: %d\n", a.TotalTrips)
	if len(a.CommonDestinations) > 0 {
		fmt.Fprintf(b, "Favorite Destinations: %s\n", strings.Join(head(a.CommonDestinations, summaryDestinations), ", "))
	}
	if len(a.CommonPreferences) > 0 {
		fmt.Fprintf(b, "Common Interests: %s\n", strings.Join(head(a.CommonPreferences, summaryPreferences), ", "))
	}
	fmt.Fprintf(b, "Average Satisfaction: %.1f/5\n", a.AvgSatisfaction)
	b.WriteString("\nConsider this travel profile when making recommendations.\n")
}

// Describe returns one short line per selected example, for API responses and logs.
func Describe(res SelectionResult) []string {
	out := make([]string, 0, len(res.Examples))
	for _, ex := range res.Examples {
		if ex.Record == nil {
			continue
		}
		out = append(out, fmt.Sprintf("%s [%s] score=%.2f rating=%.1f",
			ex.Record.Destination, ex.Tier, ex.Score, ex.Record.Rating()))
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
