// README: Example selector; ranks a user's history by similarity and tags each pick with a detail tier.
package examples

import (
	"sort"
)

// Scored is a trip together with the similarity used to pick and tier it.
type Scored struct {
	Record     *TripRecord `json:"record"`
	Score      float64     `json:"score"`
	Components Components  `json:"components"`
	Tier       Tier        `json:"tier"`
}

// Aggregate is the profile-level view rendered for SUMMARY examples.
type Aggregate struct {
	TotalTrips         int      `json:"total_trips"`
	CommonDestinations []string `json:"common_destinations"`
	CommonPreferences  []string `json:"common_preferences"`
	AvgSatisfaction    float64  `json:"avg_satisfaction"`
}

// SelectionResult is what the selector hands to prompt building.
type SelectionResult struct {
	Examples  []Scored   `json:"examples"`
	NoHistory bool       `json:"no_history"`
	Aggregate *Aggregate `json:"aggregate,omitempty"`
}

// HasTier reports whether any example was classified as t.
func (r SelectionResult) HasTier(t Tier) bool {
	for _, e := range r.Examples {
		if e.Tier == t {
			return true
		}
	}
	return false
}

type SelectorConfig struct {
	TopK               int
	FullThreshold      float64
	CondensedThreshold float64
}

func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		TopK:               DefaultTopK,
		FullThreshold:      DefaultFullThreshold,
		CondensedThreshold: DefaultCondensedThreshold,
	}
}

// Selector picks few-shot examples. Safe for concurrent use; the only shared
// mutation it performs is the atomic usage increment on picked records.
type Selector struct {
	scorer *Scorer
	cfg    SelectorConfig
}

func NewSelector(scorer *Scorer, cfg SelectorConfig) *Selector {
	def := DefaultSelectorConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.FullThreshold <= 0 {
		cfg.FullThreshold = def.FullThreshold
	}
	if cfg.CondensedThreshold <= 0 || cfg.CondensedThreshold > cfg.FullThreshold {
		cfg.CondensedThreshold = def.CondensedThreshold
	}
	return &Selector{scorer: scorer, cfg: cfg}
}

// Classify maps a score to its tier.
func (s *Selector) Classify(score float64) Tier {
	switch {
	case score >= s.cfg.FullThreshold:
		return TierFull
	case score >= s.cfg.CondensedThreshold:
		return TierCondensed
	default:
		return TierSummary
	}
}

// Select scores every record in history, orders them by score, then usage, then
// recency (stable on history order), and returns the top K with their tiers.
// Every returned record has its usage counter incremented once.
func (s *Selector) Select(cur CurrentRequest, history []*TripRecord) SelectionResult {
	type candidate struct {
		Scored
		usage int64
	}

	cands := make([]candidate, 0, len(history))
	for _, rec := range history {
		if rec == nil {
			continue
		}
		comp := s.scorer.Components(cur, rec)
		cands = append(cands, candidate{
			Scored: Scored{Record: rec, Score: comp.Total, Components: comp},
			usage:  rec.Usage(),
		})
	}
	if len(cands) == 0 {
		return SelectionResult{Examples: []Scored{}, NoHistory: true}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.usage != b.usage {
			return a.usage > b.usage
		}
		return a.Record.CreatedAt.After(b.Record.CreatedAt)
	})

	k := s.cfg.TopK
	if k > len(cands) {
		k = len(cands)
	}
	out := SelectionResult{Examples: make([]Scored, 0, k)}
	for _, c := range cands[:k] {
		c.Tier = s.Classify(c.Score)
		c.Record.IncrementUsage()
		out.Examples = append(out.Examples, c.Scored)
	}
	if out.HasTier(TierSummary) {
		agg := Summarize(history)
		out.Aggregate = &agg
	}
	return out
}

const (
	aggregateDestinations = 5
	aggregatePreferences  = 10
)

// Summarize builds aggregate statistics over history.
func Summarize(history []*TripRecord) Aggregate {
	destCount := map[string]int{}
	prefCount := map[string]int{}
	var ratingSum float64
	agg := Aggregate{}
	for _, rec := range history {
		if rec == nil {
			continue
		}
		agg.TotalTrips++
		ratingSum += rec.Rating()
		if d := NormalizeDestination(rec.Destination); d != "" {
			destCount[d]++
		}
		for p := range toSet(rec.Preferences) {
			prefCount[p]++
		}
	}
	if agg.TotalTrips == 0 {
		return agg
	}
	agg.AvgSatisfaction = roundTo(ratingSum/float64(agg.TotalTrips), 2)
	agg.CommonDestinations = TopCounts(destCount, aggregateDestinations)
	agg.CommonPreferences = TopCounts(prefCount, aggregatePreferences)
	return agg
}

// TopCounts returns up to n keys ordered by count descending, then key ascending.
func TopCounts(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
