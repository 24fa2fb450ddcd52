// README: Serializable cache snapshot (LRU order preserved) and its Redis-backed store.
package examples

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotVersion is bumped when the snapshot layout changes; older snapshots are ignored.
const SnapshotVersion = 1

type SnapshotEntry struct {
	Key       string    `json:"key"`
	Examples  []Scored  `json:"examples"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot lists cache entries from least to most recently used.
type Snapshot struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Entries []SnapshotEntry `json:"entries"`
}

// Snapshot copies the cache contents. Records are copied so the result can be
// encoded while selections keep incrementing the live usage counters.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.lru.Keys()
	snap := Snapshot{Version: SnapshotVersion, SavedAt: c.clock.Now(), Entries: make([]SnapshotEntry, 0, len(keys))}
	for _, k := range keys {
		e, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		exs := make([]Scored, 0, len(e.examples))
		for _, ex := range e.examples {
			if ex.Record != nil {
				ex.Record = ex.Record.Clone()
			}
			exs = append(exs, ex)
		}
		snap.Entries = append(snap.Entries, SnapshotEntry{Key: e.key, Examples: exs, CreatedAt: e.createdAt})
	}
	return snap
}

// Restore replays snap into the cache, oldest first, so LRU order survives a restart.
// It returns the number of entries loaded.
func (c *Cache) Restore(snap Snapshot) int {
	if snap.Version != SnapshotVersion {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, se := range snap.Entries {
		if se.Key == "" {
			continue
		}
		c.put(se.Key, se.Examples, se.CreatedAt)
		n++
	}
	return n
}

// SnapshotStore persists cache snapshots as one JSON value in Redis.
type SnapshotStore struct {
	rdb *redis.Client
	key string
}

func NewSnapshotStore(rdb *redis.Client, key string) *SnapshotStore {
	return &SnapshotStore{rdb: rdb, key: key}
}

// Save writes the current cache contents. The value has no TTL.
func (s *SnapshotStore) Save(ctx context.Context, c *Cache) (int, error) {
	snap := c.Snapshot()
	b, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, b, 0).Err(); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return len(snap.Entries), nil
}

// Load restores the saved snapshot into c. A missing key loads nothing.
func (s *SnapshotStore) Load(ctx context.Context, c *Cache) (int, error) {
	b, err := s.rdb.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}
	return c.Restore(snap), nil
}
