// README: Trip history model: sentinel errors, trip input, persisted profile summary.
package history

import (
	"errors"
	"time"

	"wayfarer/internal/modules/examples"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("trip not found")
)

const (
	// MaxRecentTrips is how many trips are kept per user; older ones only live on in the summary.
	MaxRecentTrips = 10

	favoriteDestinations = 10
	preferencePatterns   = 20
)

// TripInput is a completed trip reported by a client.
type TripInput struct {
	Destination   string   `json:"destination" binding:"required"`
	Dates         string   `json:"travel_dates"`
	Preferences   []string `json:"preferences"`
	Rating        *float64 `json:"satisfaction_rating"`
	FlightSummary string   `json:"flight_summary"`
	HotelSummary  string   `json:"hotel_summary"`
	Highlights    []string `json:"itinerary_highlights"`
}

// Summary accumulates every trip a user ever recorded, including pruned ones.
type Summary struct {
	TotalTrips        int            `json:"total_trips"`
	DestinationCounts map[string]int `json:"destination_counts"`
	PreferenceCounts  map[string]int `json:"preference_counts"`
	RatingSum         float64        `json:"rating_sum"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (s *Summary) add(rec *examples.TripRecord) {
	if s.DestinationCounts == nil {
		s.DestinationCounts = map[string]int{}
	}
	if s.PreferenceCounts == nil {
		s.PreferenceCounts = map[string]int{}
	}
	s.TotalTrips++
	s.RatingSum += rec.Rating()
	if d := examples.NormalizeDestination(rec.Destination); d != "" {
		s.DestinationCounts[d]++
	}
	for _, p := range rec.Preferences {
		s.PreferenceCounts[p]++
	}
}

// ProfileSummary is the read view of Summary.
type ProfileSummary struct {
	TotalTrips            int      `json:"totalTrips"`
	FavoriteDestinations  []string `json:"favoriteDestinations"`
	PreferencePatterns    []string `json:"preferencePatterns"`
	AvgSatisfactionRating float64  `json:"avgSatisfactionRating"`
}

func (s Summary) View() ProfileSummary {
	v := ProfileSummary{
		TotalTrips:           s.TotalTrips,
		FavoriteDestinations: examples.TopCounts(s.DestinationCounts, favoriteDestinations),
		PreferencePatterns:   examples.TopCounts(s.PreferenceCounts, preferencePatterns),
	}
	if s.TotalTrips > 0 {
		v.AvgSatisfactionRating = float64(int(s.RatingSum/float64(s.TotalTrips)*100+0.5)) / 100
	}
	return v
}

// Profile is a user's recent trips plus their lifetime summary.
type Profile struct {
	UserID      string                 `json:"user_id"`
	RecentTrips []*examples.TripRecord `json:"recentTrips"`
	Summary     ProfileSummary         `json:"summary"`
}
