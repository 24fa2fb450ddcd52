// README: Few-shot example domain types (trip records, requests, tiers) and their normalization rules.
package examples

import (
	"errors"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidWeights  = errors.New("invalid scoring weights")
	ErrInvalidCapacity = errors.New("invalid cache capacity")
)

// Tier is the level of detail an example is rendered with inside a prompt.
type Tier string

const (
	TierFull      Tier = "FULL"
	TierCondensed Tier = "CONDENSED"
	TierSummary   Tier = "SUMMARY"
)

const (
	// DefaultPreference replaces an empty preference set after normalization.
	DefaultPreference = "general"
	// NeutralRating is used when a trip was never rated.
	NeutralRating = 3.0
	MaxRating     = 5.0

	DefaultTopK               = 3
	DefaultCacheCapacity      = 50
	DefaultExamplesPerEntry   = 5
	DefaultFullThreshold      = 0.70
	DefaultCondensedThreshold = 0.40
)

// TripRecord is one past trip of a user.
// UsageCount is only touched through IncrementUsage and Usage so concurrent selections never lose updates.
type TripRecord struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Destination        string    `json:"destination"`
	Country            string    `json:"country,omitempty"`
	Dates              string    `json:"dates"`
	Preferences        []string  `json:"preferences"`
	SatisfactionRating float64   `json:"satisfaction_rating"`
	UsageCount         int64     `json:"usage_count"`
	FlightSummary      string    `json:"flight_summary,omitempty"`
	HotelSummary       string    `json:"hotel_summary,omitempty"`
	Highlights         []string  `json:"highlights,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Usage reads the usage counter atomically.
func (r *TripRecord) Usage() int64 {
	return atomic.LoadInt64(&r.UsageCount)
}

// IncrementUsage bumps the usage counter atomically and returns the new value.
func (r *TripRecord) IncrementUsage() int64 {
	return atomic.AddInt64(&r.UsageCount, 1)
}

// Clone returns a deep copy with the usage counter read atomically.
func (r *TripRecord) Clone() *TripRecord {
	return &TripRecord{
		ID:                 r.ID,
		UserID:             r.UserID,
		Destination:        r.Destination,
		Country:            r.Country,
		Dates:              r.Dates,
		Preferences:        append([]string(nil), r.Preferences...),
		SatisfactionRating: r.SatisfactionRating,
		UsageCount:         r.Usage(),
		FlightSummary:      r.FlightSummary,
		HotelSummary:       r.HotelSummary,
		Highlights:         append([]string(nil), r.Highlights...),
		CreatedAt:          r.CreatedAt,
	}
}

// Rating returns the satisfaction rating clamped to [0,5].
func (r *TripRecord) Rating() float64 {
	return clamp(r.SatisfactionRating, 0, MaxRating)
}

// CurrentRequest is the incoming query examples are scored against.
type CurrentRequest struct {
	Destination string
	Country     string
	Preferences []string
	TravelDates string
}

// NormalizePreferences lower-cases, trims, dedupes and sorts prefs.
// An empty result becomes the single DefaultPreference tag.
func NormalizePreferences(prefs []string) []string {
	seen := make(map[string]struct{}, len(prefs))
	out := make([]string, 0, len(prefs))
	for _, p := range prefs {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{DefaultPreference}
	}
	sort.Strings(out)
	return out
}

// SplitPreferences turns a free-text list ("art, food; museums") into tags.
func SplitPreferences(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
}

// NormalizeDestination lower-cases and collapses whitespace.
func NormalizeDestination(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006-01",
}

// ParseTravelDate returns the first date found in a date or date-range identifier.
// Ranges may be written as "A to B", "A - B", "A/B" (ISO dates) or "A,B".
func ParseTravelDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseDate(s); ok {
		return t, true
	}
	for _, sep := range []string{" to ", " - ", " – ", "/", ","} {
		if i := strings.Index(s, sep); i > 0 {
			if t, ok := parseDate(strings.TrimSpace(s[:i])); ok {
				return t, true
			}
		}
	}
	if len(s) >= 10 {
		if t, ok := parseDate(s[:10]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
