// README: In-memory request metrics tracker feeding the analytics dashboard.
package metrics

import (
	"sort"
	"sync"
	"time"

	"wayfarer/internal/types"
)

// Tracker records API calls and serves summaries. Safe for concurrent use.
type Tracker struct {
	clock types.Clock

	mu         sync.RWMutex
	records    []Record
	overall    bucket
	byUser     map[string]*bucket
	byEndpoint map[string]*bucket
	byHour     map[string]*bucket
}

func NewTracker(clock types.Clock) *Tracker {
	if clock == nil {
		clock = types.SystemClock
	}
	t := &Tracker{clock: clock}
	t.reset()
	return t
}

func (t *Tracker) reset() {
	t.records = nil
	t.overall = bucket{}
	t.byUser = make(map[string]*bucket)
	t.byEndpoint = make(map[string]*bucket)
	t.byHour = make(map[string]*bucket)
}

// Track adds r. A zero Timestamp is stamped with the tracker clock.
func (t *Tracker) Track(r Record) {
	if r.Timestamp.IsZero() {
		r.Timestamp = t.clock.Now()
	}
	r.Timestamp = r.Timestamp.UTC()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, r)
	if over := len(t.records) - MaxRecords; over > 0 {
		t.records = append([]Record(nil), t.records[over:]...)
	}

	t.overall.add(r)
	getBucket(t.byUser, r.UserID).add(r)
	getBucket(t.byEndpoint, r.Endpoint).add(r)
	getBucket(t.byHour, r.Timestamp.Format(hourLayout)).add(r)
}

func getBucket(m map[string]*bucket, key string) *bucket {
	b, ok := m[key]
	if !ok {
		b = &bucket{}
		m[key] = b
	}
	return b
}

// Summary covers the retained records newer than now-hours.
func (t *Tracker) Summary(hours int) Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.summaryLocked(hours)
}

func (t *Tracker) summaryLocked(hours int) Summary {
	cutoff := t.clock.Now().Add(-time.Duration(hours) * time.Hour)
	var b bucket
	for _, r := range t.records {
		if r.Timestamp.After(cutoff) {
			b.add(r)
		}
	}
	s := Summary{PeriodHours: hours, TotalRequests: b.requests, TotalTokens: b.tokens, ErrorCount: b.errors}
	if b.requests > 0 {
		s.SuccessRate = float64(b.requests-b.errors) / float64(b.requests)
		s.AvgTokensPerRequest = float64(b.tokens) / float64(b.requests)
		s.AvgLatencyMs = b.avgLatency()
	}
	return s
}

func (t *Tracker) UserStats(userID string) UserStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := UserStats{UserID: userID}
	if b, ok := t.byUser[userID]; ok {
		st.TotalRequests = b.requests
		st.TotalTokens = b.tokens
		st.AvgLatencyMs = b.avgLatency()
	}
	return st
}

// Hourly returns hour buckets that start after now-hours, oldest first.
func (t *Tracker) Hourly(hours int) []HourStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hourlyLocked(hours)
}

func (t *Tracker) hourlyLocked(hours int) []HourStats {
	cutoff := t.clock.Now().Add(-time.Duration(hours) * time.Hour)
	out := []HourStats{}
	for key, b := range t.byHour {
		start, err := time.Parse(hourLayout, key)
		if err != nil || !start.After(cutoff) {
			continue
		}
		out = append(out, HourStats{Hour: key, Requests: b.requests, Tokens: b.tokens, AvgLatencyMs: b.avgLatency()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}

func (t *Tracker) Dashboard() Dashboard {
	t.mu.RLock()
	defer t.mu.RUnlock()

	users := make([]UserUsage, 0, len(t.byUser))
	for id, b := range t.byUser {
		users = append(users, UserUsage{UserID: id, Requests: b.requests, Tokens: b.tokens})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Requests != users[j].Requests {
			return users[i].Requests > users[j].Requests
		}
		return users[i].UserID < users[j].UserID
	})
	if len(users) > topUsers {
		users = users[:topUsers]
	}

	endpoints := make([]EndpointStats, 0, len(t.byEndpoint))
	for name, b := range t.byEndpoint {
		es := EndpointStats{Endpoint: name, Requests: b.requests, Tokens: b.tokens, AvgLatencyMs: b.avgLatency()}
		if b.requests > 0 {
			es.ErrorRate = float64(b.errors) / float64(b.requests)
		}
		endpoints = append(endpoints, es)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Endpoint < endpoints[j].Endpoint })

	return Dashboard{
		Summary24h:      t.summaryLocked(24),
		Summary1h:       t.summaryLocked(1),
		HourlyBreakdown: t.hourlyLocked(24),
		TopUsers:        users,
		EndpointStats:   endpoints,
		Overall: Overall{
			TotalRequests: t.overall.requests,
			TotalTokens:   t.overall.tokens,
			TotalErrors:   t.overall.errors,
			AvgLatencyMs:  t.overall.avgLatency(),
		},
	}
}

// Reset drops every record and aggregate.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}
