// README: Metrics tracker tests (windows, hourly buckets, top users, retention, reset).
package metrics

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"wayfarer/internal/types"
)

var now = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

func newTestTracker() *Tracker { return NewTracker(types.FixedClock(now)) }

func rec(user, endpoint string, ago time.Duration, tokens int, latency int64, ok bool) Record {
	r := Record{Timestamp: now.Add(-ago), UserID: user, Endpoint: endpoint, TotalTokens: tokens, LatencyMs: latency, Success: ok}
	if !ok {
		r.Error = "boom"
	}
	return r
}

func TestSummary_Windows(t *testing.T) {
	tr := newTestTracker()
	tr.Track(rec("u1", "/api/travel-assistant", 10*time.Minute, 100, 200, true))
	tr.Track(rec("u1", "/api/travel-assistant", 20*time.Minute, 300, 400, false))
	tr.Track(rec("u2", "/api/travel-assistant", 5*time.Hour, 50, 100, true))
	tr.Track(rec("u2", "/api/travel-assistant", 30*time.Hour, 50, 100, true))

	s := tr.Summary(1)
	if s.TotalRequests != 2 || s.TotalTokens != 400 || s.ErrorCount != 1 {
		t.Fatalf("1h summary: %+v", s)
	}
	if s.SuccessRate != 0.5 || s.AvgTokensPerRequest != 200 || s.AvgLatencyMs != 300 {
		t.Fatalf("1h averages: %+v", s)
	}
	if s := tr.Summary(24); s.TotalRequests != 3 || s.PeriodHours != 24 {
		t.Fatalf("24h summary: %+v", s)
	}
	if s := NewTracker(types.FixedClock(now)).Summary(24); s.TotalRequests != 0 || s.SuccessRate != 0 {
		t.Fatalf("empty summary: %+v", s)
	}
}

func TestUserStatsAndHourly(t *testing.T) {
	tr := newTestTracker()
	tr.Track(rec("u1", "/a", 0, 10, 100, true))
	tr.Track(rec("u1", "/a", time.Hour, 30, 300, true))

	us := tr.UserStats("u1")
	if us.TotalRequests != 2 || us.TotalTokens != 40 || us.AvgLatencyMs != 200 {
		t.Fatalf("user stats: %+v", us)
	}
	if us := tr.UserStats("ghost"); us.TotalRequests != 0 || us.UserID != "ghost" {
		t.Fatalf("unknown user: %+v", us)
	}

	hours := tr.Hourly(24)
	if len(hours) != 2 || hours[0].Hour != "2025-06-01_11" || hours[1].Hour != "2025-06-01_12" {
		t.Fatalf("hourly: %+v", hours)
	}
}

func TestDashboard(t *testing.T) {
	tr := newTestTracker()
	for i := 0; i < 12; i++ {
		for j := 0; j <= i; j++ {
			tr.Track(rec(fmt.Sprintf("user%02d", i), "/api/travel-assistant", 0, 1, 10, true))
		}
	}
	tr.Track(rec("user00", "/api/users/trips", 0, 0, 10, false))

	d := tr.Dashboard()
	if len(d.TopUsers) != topUsers || d.TopUsers[0].UserID != "user11" {
		t.Fatalf("top users: %+v", d.TopUsers)
	}
	if len(d.EndpointStats) != 2 || d.EndpointStats[1].Endpoint != "/api/users/trips" || d.EndpointStats[1].ErrorRate != 1 {
		t.Fatalf("endpoints: %+v", d.EndpointStats)
	}
	if d.Overall.TotalRequests != 79 || d.Overall.TotalErrors != 1 || d.Summary1h.TotalRequests != 79 {
		t.Fatalf("overall: %+v summary1h: %+v", d.Overall, d.Summary1h)
	}
}

func TestRetentionAndReset(t *testing.T) {
	tr := newTestTracker()
	for i := 0; i < MaxRecords+50; i++ {
		tr.Track(rec("u1", "/a", 0, 1, 1, true))
	}
	if s := tr.Summary(24); s.TotalRequests != MaxRecords {
		t.Fatalf("retained records: %d", s.TotalRequests)
	}
	if d := tr.Dashboard(); d.Overall.TotalRequests != MaxRecords+50 {
		t.Fatalf("aggregates should count past retention: %d", d.Overall.TotalRequests)
	}

	tr.Reset()
	d := tr.Dashboard()
	if d.Overall.TotalRequests != 0 || len(d.TopUsers) != 0 || len(d.HourlyBreakdown) != 0 {
		t.Fatalf("after reset: %+v", d)
	}
}

func TestTrack_ZeroTimestampUsesClock(t *testing.T) {
	tr := newTestTracker()
	tr.Track(Record{UserID: "u1", Endpoint: "/a", Success: true})
	if s := tr.Summary(1); s.TotalRequests != 1 {
		t.Fatalf("expected record stamped at now, got %+v", s)
	}
}

func TestTrack_Concurrent(t *testing.T) {
	tr := newTestTracker()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				tr.Track(rec(fmt.Sprintf("u%d", i%4), "/a", 0, 2, 5, true))
				_ = tr.Dashboard()
			}
		}(i)
	}
	wg.Wait()
	if d := tr.Dashboard(); d.Overall.TotalRequests != 500 || d.Overall.TotalTokens != 1000 {
		t.Fatalf("overall: %+v", d.Overall)
	}
}
