// README: Similarity scorer; weighted destination/temporal/preference/satisfaction heuristic bounded to [0,1].
package examples

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Weights are the maximum contribution of each scoring component.
type Weights struct {
	Destination  float64 `json:"destination"`
	Temporal     float64 `json:"temporal"`
	Preference   float64 `json:"preference"`
	Satisfaction float64 `json:"satisfaction"`
}

var (
	// BalancedWeights scores destination 40%, travel dates 30% and preferences 30%.
	BalancedWeights = Weights{Destination: 0.40, Temporal: 0.30, Preference: 0.30}
	// ProfileWeights scores destination 40%, preferences 40% and past satisfaction 20%.
	ProfileWeights = Weights{Destination: 0.40, Preference: 0.40, Satisfaction: 0.20}
)

const (
	fullTemporalDays = 30
	halfTemporalDays = 90
	weightTolerance  = 1e-9
)

// WeightsByName maps a config value to a weight profile.
func WeightsByName(name string) (Weights, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "balanced":
		return BalancedWeights, nil
	case "profile":
		return ProfileWeights, nil
	default:
		return Weights{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidWeights, name)
	}
}

func (w Weights) validate() error {
	for _, v := range []float64{w.Destination, w.Temporal, w.Preference, w.Satisfaction} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: negative or non-finite weight", ErrInvalidWeights)
		}
	}
	if sum := w.Destination + w.Temporal + w.Preference + w.Satisfaction; sum > 1+weightTolerance {
		return fmt.Errorf("%w: weights sum to %.3f", ErrInvalidWeights, sum)
	}
	return nil
}

// Components is the weighted contribution of each part of a score.
type Components struct {
	Destination  float64 `json:"destination"`
	Temporal     float64 `json:"temporal"`
	Preference   float64 `json:"preference"`
	Satisfaction float64 `json:"satisfaction"`
	// DatesCompared is false when the temporal weight was moved to preferences.
	DatesCompared bool    `json:"dates_compared"`
	Total         float64 `json:"total"`
}

// Scorer computes similarity between a request and a past trip. It holds no mutable state.
type Scorer struct {
	weights Weights
}

func NewScorer(w Weights) (*Scorer, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

func (s *Scorer) Weights() Weights { return s.weights }

// Score returns the similarity of candidate to cur in [0,1].
func (s *Scorer) Score(cur CurrentRequest, candidate *TripRecord) float64 {
	return s.Components(cur, candidate).Total
}

// Components returns the per-component breakdown of Score.
// Malformed or missing fields contribute zero; nothing here fails.
func (s *Scorer) Components(cur CurrentRequest, candidate *TripRecord) Components {
	var c Components
	if candidate == nil {
		return c
	}
	w := s.weights

	c.Destination = w.Destination * destinationMatch(cur, candidate)

	prefWeight := w.Preference
	curDate, curOK := ParseTravelDate(cur.TravelDates)
	candDate, candOK := ParseTravelDate(candidate.Dates)
	if curOK && candOK {
		c.DatesCompared = true
		c.Temporal = w.Temporal * temporalMatch(curDate.Sub(candDate).Hours()/24)
	} else {
		prefWeight += w.Temporal
	}

	c.Preference = prefWeight * preferenceOverlap(cur.Preferences, candidate.Preferences)
	c.Satisfaction = w.Satisfaction * candidate.Rating() / MaxRating

	c.Total = roundScore(clamp(c.Destination+c.Temporal+c.Preference+c.Satisfaction, 0, 1))
	return c
}

// destinationMatch is 1 for an exact match, 0.5 for a partial one and 0 otherwise.
func destinationMatch(cur CurrentRequest, candidate *TripRecord) float64 {
	a := NormalizeDestination(cur.Destination)
	b := NormalizeDestination(candidate.Destination)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.5
	}
	if tokensOverlap(destinationTokens(a), destinationTokens(b)) {
		return 0.5
	}
	ca := NormalizeDestination(cur.Country)
	cb := NormalizeDestination(candidate.Country)
	if ca != "" && ca == cb {
		return 0.5
	}
	return 0
}

func destinationTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokensOverlap(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// roundScore drops float noise below 1e-9 so threshold comparisons are stable.
func roundScore(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

func temporalMatch(days float64) float64 {
	days = math.Abs(days)
	switch {
	case days <= fullTemporalDays:
		return 1
	case days <= halfTemporalDays:
		return 0.5
	default:
		return 0
	}
}

// preferenceOverlap is |cur ∩ cand| / max(|cur|, 1) on case-insensitive, deduplicated sets.
func preferenceOverlap(cur, cand []string) float64 {
	curSet := toSet(cur)
	if len(curSet) == 0 {
		return 0
	}
	candSet := toSet(cand)
	shared := 0
	for p := range curSet {
		if _, ok := candSet[p]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(curSet))
}

func toSet(prefs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(prefs))
	for _, p := range prefs {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}
