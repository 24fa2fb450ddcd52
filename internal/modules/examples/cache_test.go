// README: Example cache tests (LRU eviction, composite re-ranking, stats, snapshot round trip).
package examples

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"wayfarer/internal/types"
)

func newTestCache(t *testing.T, capacity int, now time.Time) *Cache {
	t.Helper()
	c, err := NewCache(CacheConfig{Capacity: capacity, Clock: types.FixedClock(now)})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c
}

func scored(recs ...*TripRecord) []Scored {
	out := make([]Scored, 0, len(recs))
	for _, r := range recs {
		out = append(out, Scored{Record: r, Score: 1, Tier: TierFull})
	}
	return out
}

func assertKeys(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("keys: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys: got %v, want %v", got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// LRU behaviour
// ---------------------------------------------------------------------------

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestCache(t, 3, baseTime)
	c.Put("a", scored(trip("1", "A")))
	c.Put("b", scored(trip("2", "B")))
	c.Put("c", scored(trip("3", "C")))
	c.Put("d", scored(trip("4", "D")))

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be evicted")
	}
	assertKeys(t, c.Keys(), []string{"b", "c", "d"})
	if st := c.Stats(); st.Evictions != 1 {
		t.Fatalf("evictions: got %d", st.Evictions)
	}
}

func TestCache_GetProtectsFromEviction(t *testing.T) {
	c := newTestCache(t, 3, baseTime)
	c.Put("a", scored(trip("1", "A")))
	c.Put("b", scored(trip("2", "B")))
	c.Put("c", scored(trip("3", "C")))

	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit on a")
	}
	c.Put("d", scored(trip("4", "D")))

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive")
	}
}

func TestCache_GetRankedPromotes(t *testing.T) {
	c := newTestCache(t, 2, baseTime)
	c.Put("a", scored(trip("1", "A")))
	c.Put("b", scored(trip("2", "B")))
	if _, ok := c.GetRanked("a"); !ok {
		t.Fatal("expected hit")
	}
	c.Put("c", scored(trip("3", "C")))
	assertKeys(t, c.Keys(), []string{"a", "c"})
}

func TestCache_PutExistingKeyReplaces(t *testing.T) {
	c := newTestCache(t, 2, baseTime)
	c.Put("a", scored(trip("1", "A")))
	c.Put("b", scored(trip("2", "B")))
	c.Put("a", scored(trip("9", "A"), trip("10", "A")))

	got, ok := c.Get("a")
	if !ok || len(got) != 2 || got[0].Record.ID != "9" {
		t.Fatalf("expected replaced entry, got %v %v", got, ok)
	}
	if c.Len() != 2 || c.Stats().Evictions != 0 {
		t.Fatalf("replacing must not evict: len=%d evictions=%d", c.Len(), c.Stats().Evictions)
	}
}

func TestCache_PutKeepsAtMostN(t *testing.T) {
	c := newTestCache(t, 2, baseTime)
	recs := make([]*TripRecord, 0, 8)
	for i := 0; i < 8; i++ {
		recs = append(recs, trip(string(rune('a'+i)), "X"))
	}
	c.Put("k", scored(recs...))
	got, _ := c.Get("k")
	if len(got) != DefaultExamplesPerEntry {
		t.Fatalf("expected %d examples, got %d", DefaultExamplesPerEntry, len(got))
	}
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := newTestCache(t, 2, baseTime)
	c.Put("k", scored(trip("1", "A")))
	got, _ := c.Get("k")
	got[0].Tier = TierSummary
	again, _ := c.Get("k")
	if again[0].Tier != TierFull {
		t.Fatal("mutating a returned slice changed the cache")
	}
}

func TestNewCache_InvalidCapacity(t *testing.T) {
	if _, err := NewCache(CacheConfig{Capacity: -1}); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("expected ErrInvalidCapacity, got %v", err)
	}
	c, err := NewCache(CacheConfig{})
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if c.Stats().Capacity != DefaultCacheCapacity {
		t.Fatalf("default capacity: got %d", c.Stats().Capacity)
	}
}

// ---------------------------------------------------------------------------
// Composite re-ranking
// ---------------------------------------------------------------------------

func TestCache_GetRankedOrder(t *testing.T) {
	now := baseTime
	c := newTestCache(t, 5, now)

	// A: 0.4*5/5 + 0.3*0/10 + 0.3*(1-29/30) = 0.41
	a := trip("A", "Paris")
	a.SatisfactionRating = 5
	a.CreatedAt = now.AddDate(0, 0, -29)
	// B: 0.4*2/5 + 0.3*10/10 + 0.3*1 = 0.76
	b := trip("B", "Paris")
	b.SatisfactionRating = 2
	b.UsageCount = 10
	b.CreatedAt = now
	// C: 0.4*4/5 + 0.3*5/10 + 0.3*(1-15/30) = 0.62
	c3 := trip("C", "Paris")
	c3.SatisfactionRating = 4
	c3.UsageCount = 5
	c3.CreatedAt = now.AddDate(0, 0, -15)

	c.Put("paris|art", scored(a, b, c3))
	rk, ok := c.GetRanked("paris|art")
	if !ok {
		t.Fatal("expected hit")
	}
	if rk.Evaluated != 3 || rk.Weights != DefaultRankWeights {
		t.Fatalf("metadata: %+v", rk)
	}

	want := []struct {
		id                       string
		sat, pop, rec, composite float64
	}{
		{"B", 0.16, 0.30, 0.30, 0.76},
		{"C", 0.32, 0.15, 0.15, 0.62},
		{"A", 0.40, 0.00, 0.01, 0.41},
	}
	for i, w := range want {
		got := rk.Examples[i]
		if got.Record.ID != w.id {
			t.Fatalf("position %d: got %s, want %s", i, got.Record.ID, w.id)
		}
		bd := got.Breakdown
		if !almostEqual(bd.Satisfaction, w.sat) || !almostEqual(bd.Popularity, w.pop) ||
			!almostEqual(bd.Recency, w.rec) || !almostEqual(bd.Composite, w.composite) {
			t.Fatalf("%s breakdown: got %+v", w.id, bd)
		}
	}
}

func TestRankExamples_ZeroUsageAndAgeEdges(t *testing.T) {
	now := baseTime
	old := trip("old", "X")
	old.SatisfactionRating = 5
	old.CreatedAt = now.AddDate(0, 0, -90)
	future := trip("future", "X")
	future.SatisfactionRating = 0
	future.CreatedAt = now.AddDate(0, 0, 3)
	undated := trip("undated", "X")
	undated.CreatedAt = time.Time{}

	rk := RankExamples(scored(old, future, undated), now, DefaultRankWeights, 5)
	for _, r := range rk.Examples {
		if r.Breakdown.Popularity != 0 {
			t.Fatalf("%s: popularity must be 0 when all usage is 0, got %v", r.Record.ID, r.Breakdown.Popularity)
		}
	}
	byID := map[string]Breakdown{}
	for _, r := range rk.Examples {
		byID[r.Record.ID] = r.Breakdown
	}
	if byID["old"].Recency != 0 {
		t.Fatalf("old recency: got %v", byID["old"].Recency)
	}
	if !almostEqual(byID["future"].Recency, 0.3) {
		t.Fatalf("future recency should clamp to full weight, got %v", byID["future"].Recency)
	}
	if byID["undated"].Recency != 0 {
		t.Fatalf("undated recency: got %v", byID["undated"].Recency)
	}

	empty := RankExamples(nil, now, DefaultRankWeights, 5)
	if empty.Evaluated != 0 || len(empty.Examples) != 0 {
		t.Fatalf("empty ranking: %+v", empty)
	}
}

func TestRankExamples_TopN(t *testing.T) {
	recs := []*TripRecord{trip("1", "X"), trip("2", "X"), trip("3", "X")}
	rk := RankExamples(scored(recs...), baseTime, DefaultRankWeights, 2)
	if rk.Evaluated != 3 || len(rk.Examples) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(rk.Examples), rk.Evaluated)
	}
	// Equal composites keep insertion order.
	if rk.Examples[0].Record.ID != "1" || rk.Examples[1].Record.ID != "2" {
		t.Fatalf("unexpected order: %s, %s", rk.Examples[0].Record.ID, rk.Examples[1].Record.ID)
	}
}

// ---------------------------------------------------------------------------
// Stats, removal, clear
// ---------------------------------------------------------------------------

func TestCache_RemoveScope(t *testing.T) {
	c := newTestCache(t, 10, baseTime)
	c.Put(ScopedKey("alice", "paris|art"), scored(trip("1", "Paris")))
	c.Put(ScopedKey("alice", "rome|food"), scored(trip("2", "Rome")))
	c.Put(ScopedKey("bob", "paris|art"), scored(trip("3", "Paris")))
	c.Put(ScopedKey("Alice", "oslo|"), scored(trip("4", "Oslo")))

	if n := c.RemoveScope("alice"); n != 2 {
		t.Fatalf("removed %d entries, want 2", n)
	}
	assertKeys(t, c.Keys(), []string{ScopedKey("bob", "paris|art"), ScopedKey("Alice", "oslo|")})
}

func TestCache_StatsAndClear(t *testing.T) {
	c := newTestCache(t, 3, baseTime)
	c.Put("a", scored(trip("1", "A")))
	c.Put("b", scored(trip("2", "B"), trip("3", "B")))
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	st := c.Stats()
	if st.Size != 2 || st.Hits != 2 || st.Misses != 1 {
		t.Fatalf("stats: %+v", st)
	}
	if !almostEqual(st.HitRate, 0.6667) {
		t.Fatalf("hit rate: got %v", st.HitRate)
	}
	if st.Entries[0].Key != "a" || st.Entries[0].Hits != 2 || st.Entries[0].LastUsed == nil {
		t.Fatalf("most recent entry first: %+v", st.Entries[0])
	}
	if st.Entries[1].Key != "b" || st.Entries[1].Examples != 2 || st.Entries[1].LastUsed != nil {
		t.Fatalf("second entry: %+v", st.Entries[1])
	}

	if !c.Remove("b") || c.Remove("b") {
		t.Fatal("remove should report presence once")
	}
	c.Clear()
	st = c.Stats()
	if st.Size != 0 || st.Hits != 0 || st.Misses != 0 || st.Evictions != 0 {
		t.Fatalf("after clear: %+v", st)
	}
}

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

func TestCache_SnapshotRestorePreservesOrder(t *testing.T) {
	src := newTestCache(t, 3, baseTime)
	rec := trip("1", "A")
	rec.UsageCount = 7
	src.Put("a", scored(rec))
	src.Put("b", scored(trip("2", "B")))
	src.Put("c", scored(trip("3", "C")))
	src.Get("a")

	snap := src.Snapshot()
	dst := newTestCache(t, 3, baseTime)
	if n := dst.Restore(snap); n != 3 {
		t.Fatalf("restored %d entries", n)
	}
	assertKeys(t, dst.Keys(), []string{"b", "c", "a"})

	got, _ := dst.Get("a")
	if got[0].Record.Usage() != 7 {
		t.Fatalf("usage not carried: %d", got[0].Record.Usage())
	}
	if got[0].Record == rec {
		t.Fatal("snapshot must not share records with the live cache")
	}

	snap.Version = SnapshotVersion + 1
	if n := newTestCache(t, 3, baseTime).Restore(snap); n != 0 {
		t.Fatalf("unknown version should be ignored, restored %d", n)
	}
}

func TestSnapshotStore_Redis(t *testing.T) {
	addr := os.Getenv("WAYFARER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WAYFARER_TEST_REDIS_ADDR not set; skipping Redis-backed tests")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	key := "wayfarer:test:example-cache"
	t.Cleanup(func() { rdb.Del(context.Background(), key) })
	rdb.Del(ctx, key)

	store := NewSnapshotStore(rdb, key)
	empty := newTestCache(t, 3, baseTime)
	if n, err := store.Load(ctx, empty); err != nil || n != 0 {
		t.Fatalf("load missing key: n=%d err=%v", n, err)
	}

	src := newTestCache(t, 3, baseTime)
	src.Put("a", scored(trip("1", "A")))
	src.Put("b", scored(trip("2", "B")))
	if n, err := store.Save(ctx, src); err != nil || n != 2 {
		t.Fatalf("save: n=%d err=%v", n, err)
	}

	dst := newTestCache(t, 3, baseTime)
	if n, err := store.Load(ctx, dst); err != nil || n != 2 {
		t.Fatalf("load: n=%d err=%v", n, err)
	}
	assertKeys(t, dst.Keys(), []string{"a", "b"})
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache(t, 8, baseTime)
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := keys[i%len(keys)]
			switch i % 4 {
			case 0:
				c.Put(k, scored(trip(k, k)))
			case 1:
				c.Get(k)
			case 2:
				c.GetRanked(k)
			default:
				c.Stats()
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 8 {
		t.Fatalf("len %d exceeds capacity", c.Len())
	}
}
