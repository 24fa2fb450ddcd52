// README: LRU example cache with composite (satisfaction/popularity/recency) re-ranking on read.
package examples

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"wayfarer/internal/types"
)

// RankWeights weight the composite score used by GetRanked.
type RankWeights struct {
	Satisfaction float64 `json:"satisfaction"`
	Popularity   float64 `json:"popularity"`
	Recency      float64 `json:"recency"`
}

var DefaultRankWeights = RankWeights{Satisfaction: 0.4, Popularity: 0.3, Recency: 0.3}

// RecencyWindowDays is the age at which the recency term reaches zero.
const RecencyWindowDays = 30.0

type CacheConfig struct {
	Capacity         int
	ExamplesPerEntry int
	Weights          RankWeights
	Clock            types.Clock
}

// Breakdown is the weighted composite score of one cached example.
type Breakdown struct {
	Satisfaction float64 `json:"satisfaction"`
	Popularity   float64 `json:"popularity"`
	Recency      float64 `json:"recency"`
	Composite    float64 `json:"composite"`
}

type Ranked struct {
	Scored
	Breakdown Breakdown `json:"breakdown"`
}

// Ranking is the result of GetRanked.
type Ranking struct {
	Examples  []Ranked    `json:"examples"`
	Evaluated int         `json:"total_examples_evaluated"`
	Weights   RankWeights `json:"ranking_weights"`
}

type entry struct {
	key       string
	examples  []Scored
	createdAt time.Time
	lastUsed  time.Time
	hits      int64
}

// Cache is an LRU of example sets keyed by CacheKey. All methods are safe for
// concurrent use; a single mutex guards the ordered map and the counters.
type Cache struct {
	mu        sync.Mutex
	lru       *simplelru.LRU[string, *entry]
	capacity  int
	perEntry  int
	weights   RankWeights
	clock     types.Clock
	hits      int64
	misses    int64
	evictions int64
}

func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCacheCapacity
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.Capacity)
	}
	if cfg.ExamplesPerEntry <= 0 {
		cfg.ExamplesPerEntry = DefaultExamplesPerEntry
	}
	if cfg.Weights == (RankWeights{}) {
		cfg.Weights = DefaultRankWeights
	}
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock
	}
	lru, err := simplelru.NewLRU[string, *entry](cfg.Capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCapacity, err)
	}
	return &Cache{
		lru:      lru,
		capacity: cfg.Capacity,
		perEntry: cfg.ExamplesPerEntry,
		weights:  cfg.Weights,
		clock:    cfg.Clock,
	}, nil
}

// Get returns the cached examples for key in stored order and marks the entry most recently used.
func (c *Cache) Get(key string) ([]Scored, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.touch(key)
	if !ok {
		return nil, false
	}
	out := make([]Scored, len(e.examples))
	copy(out, e.examples)
	return out, true
}

// Put stores examples under key, keeping at most ExamplesPerEntry of them.
// Inserting a new key into a full cache evicts the least recently used entry.
func (c *Cache) Put(key string, examples []Scored) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, examples, c.clock.Now())
}

func (c *Cache) put(key string, examples []Scored, createdAt time.Time) {
	n := len(examples)
	if n > c.perEntry {
		n = c.perEntry
	}
	stored := make([]Scored, n)
	copy(stored, examples[:n])

	e := &entry{key: key, examples: stored, createdAt: createdAt}
	if old, ok := c.lru.Peek(key); ok {
		e.createdAt = old.createdAt
		e.hits = old.hits
		e.lastUsed = old.lastUsed
	}
	if c.lru.Add(key, e) {
		c.evictions++
	}
}

// GetRanked re-ranks the cached set for key by
// 0.4*(rating/5) + 0.3*(usage/maxUsage) + 0.3*max(0, 1-ageDays/30)
// and returns it with the breakdown of every example. A hit also promotes the entry.
func (c *Cache) GetRanked(key string) (Ranking, bool) {
	c.mu.Lock()
	e, ok := c.touch(key)
	var examples []Scored
	if ok {
		examples = make([]Scored, len(e.examples))
		copy(examples, e.examples)
	}
	now := c.clock.Now()
	c.mu.Unlock()

	if !ok {
		return Ranking{}, false
	}
	return RankExamples(examples, now, c.weights, c.perEntry), true
}

// RankExamples applies the composite ranking to examples at time now and keeps the top n.
// Ties keep their incoming order.
func RankExamples(examples []Scored, now time.Time, w RankWeights, n int) Ranking {
	var maxUsage int64
	usages := make([]int64, len(examples))
	for i, ex := range examples {
		if ex.Record == nil {
			continue
		}
		usages[i] = ex.Record.Usage()
		if usages[i] > maxUsage {
			maxUsage = usages[i]
		}
	}

	ranked := make([]Ranked, 0, len(examples))
	for i, ex := range examples {
		var b Breakdown
		if ex.Record != nil {
			b.Satisfaction = w.Satisfaction * ex.Record.Rating() / MaxRating
			if maxUsage > 0 {
				b.Popularity = w.Popularity * float64(usages[i]) / float64(maxUsage)
			}
			b.Recency = w.Recency * recency(now, ex.Record.CreatedAt)
		}
		b.Composite = roundScore(b.Satisfaction + b.Popularity + b.Recency)
		ranked = append(ranked, Ranked{Scored: ex, Breakdown: b})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Breakdown.Composite > ranked[j].Breakdown.Composite
	})

	out := Ranking{Evaluated: len(ranked), Weights: w}
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	out.Examples = ranked
	return out
}

// recency is 1 for a record created now, falling linearly to 0 at RecencyWindowDays.
func recency(now, createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	return clamp(1-ageDays/RecencyWindowDays, 0, 1)
}

// Remove drops key if present.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// RemoveScope drops every entry whose key was built by ScopedKey(scope, ...).
func (c *Cache) RemoveScope(scope string) int {
	prefix := ScopedKey(scope, "")
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) && c.lru.Remove(k) {
			n++
		}
	}
	return n
}

// Clear drops every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.hits, c.misses, c.evictions = 0, 0, 0
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Keys returns the cached keys from least to most recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

// touch looks up key, promoting it and updating hit statistics. Caller holds mu.
func (c *Cache) touch(key string) (*entry, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	e.hits++
	e.lastUsed = c.clock.Now()
	return e, true
}

type EntryStats struct {
	Key       string     `json:"key"`
	Examples  int        `json:"examples"`
	Hits      int64      `json:"hits"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

type Stats struct {
	Size      int          `json:"cache_size"`
	Capacity  int          `json:"max_size"`
	Hits      int64        `json:"hits"`
	Misses    int64        `json:"misses"`
	HitRate   float64      `json:"hit_rate"`
	Evictions int64        `json:"evictions"`
	Entries   []EntryStats `json:"entries"`
}

// Stats reports counters and per-entry details, most recently used first.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   make([]EntryStats, 0, c.lru.Len()),
	}
	if total := c.hits + c.misses; total > 0 {
		st.HitRate = roundTo(float64(c.hits)/float64(total), 4)
	}
	keys := c.lru.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		e, ok := c.lru.Peek(keys[i])
		if !ok {
			continue
		}
		es := EntryStats{Key: e.key, Examples: len(e.examples), Hits: e.hits, CreatedAt: e.createdAt}
		if !e.lastUsed.IsZero() {
			lu := e.lastUsed
			es.LastUsed = &lu
		}
		st.Entries = append(st.Entries, es)
	}
	return st
}
