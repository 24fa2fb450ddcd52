// README: Benchmark cases for the travel API; includes HTTP, DB, Redis, and throughput checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"wayfarer/internal/infra"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// set by the record trip case, used by the rating cases
	tripID string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg: cfg,
		// plan calls fan out to the model, so allow more than a plain CRUD call
		httpc: &http.Client{Timeout: 90 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	user := r.cfg.UserID
	plan := map[string]any{
		"destination":  "Lisbon",
		"travel_dates": "2025-09-12 to 2025-09-18",
		"preferences":  "food, history, viewpoints",
		"user_id":      user,
	}
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "DB reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "Redis reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "SKIP", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "apply migrations/*.sql",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: "SKIP", Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				if err := infra.ApplyMigrations(ctx, r.db, r.cfg.MigrationDir); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "every CREATE TABLE in migrations/ exists",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationDir)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table: " + t}
					}
				}
				return Result{Status: "PASS", Note: strings.Join(tables, ",")}
			},
		},
		httpCaseMethod("API: health", http.MethodGet, base+"/health", nil, []int{200}),
		httpCaseMethod("API: index", http.MethodGet, base+"/", nil, []int{200}),

		// History
		{
			Name:  "History: record trip",
			Focus: "POST /api/users/:id/trips",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.recordTrip(ctx, base+"/api/users/"+user+"/trips")
			},
		},
		httpCase("History: record trip (missing destination -> 400)", base+"/api/users/"+user+"/trips", map[string]any{}, []int{400}),
		httpCaseMethod("History: read profile", http.MethodGet, base+"/api/users/"+user+"/history", nil, []int{200}),
		{
			Name:  "History: rate trip",
			Focus: "PUT rating within [0,5]",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.tripID == "" {
					return Result{Status: "SKIP", Note: "no trip recorded"}
				}
				return r.do(ctx, http.MethodPut, base+"/api/users/"+user+"/trips/"+r.tripID+"/rating", map[string]any{"satisfaction_rating": 4}, []int{200})
			},
		},
		{
			Name:  "History: rate trip (out of range -> 400)",
			Focus: "PUT rating outside [0,5]",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.tripID == "" {
					return Result{Status: "SKIP", Note: "no trip recorded"}
				}
				return r.do(ctx, http.MethodPut, base+"/api/users/"+user+"/trips/"+r.tripID+"/rating", map[string]any{"satisfaction_rating": 7}, []int{400})
			},
		},
		httpCaseMethod("History: rate unknown trip -> 404", http.MethodPut, base+"/api/users/"+user+"/trips/unknown/rating", map[string]any{"satisfaction_rating": 3}, []int{404}),

		// Planner
		httpCase("Plan: missing fields -> 400", base+"/api/travel-assistant", map[string]any{"destination": "Lisbon"}, []int{400}),
		{
			Name:  "Plan: full request",
			Focus: "three model calls with examples",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.planCase(ctx, base+"/api/travel-assistant", plan, false)
			},
		},
		{
			Name:  "Plan: repeated request served from cache",
			Focus: "cached=true, no model calls",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.planCase(ctx, base+"/api/travel-assistant", plan, true)
			},
		},

		// Dashboard
		httpCaseMethod("Dashboard: metrics", http.MethodGet, base+"/dashboard/api/metrics", nil, []int{200, 401, 403}),
		httpCaseMethod("Dashboard: summary hours=1", http.MethodGet, base+"/dashboard/api/metrics/summary?hours=1", nil, []int{200, 401, 403}),
		httpCaseMethod("Dashboard: summary hours=0 -> 400", http.MethodGet, base+"/dashboard/api/metrics/summary?hours=0", nil, []int{400, 401, 403}),
		httpCaseMethod("Dashboard: cache stats", http.MethodGet, base+"/dashboard/api/cache/stats", nil, []int{200, 401, 403}),

		manualCase("Quota: monthly limit -> 429", "set WAYFARER_MONTHLY_REQUESTS low and repeat plan calls"),
		manualCase("Cache: snapshot survives restart", "restart with WAYFARER_REDIS_ADDR set and compare cache stats"),
		manualCase("Error: model outage -> 500", "use an invalid GEMINI_API_KEY and send a plan request"),

		// Performance
		{
			Name:  "Perf: history read throughput",
			Focus: "GET history under load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, base+"/api/users/"+user+"/history", nil)
			},
		},
		{
			Name:  "Perf: cached plan throughput",
			Focus: "response cache hits under load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodPost, base+"/api/travel-assistant", plan)
			},
		},
	}
}

func (r *Runner) recordTrip(ctx context.Context, url string) Result {
	body, _ := json.Marshal(map[string]any{
		"destination":          "Porto",
		"travel_dates":         "2024-05-03 to 2024-05-08",
		"preferences":          []string{"food", "history"},
		"satisfaction_rating":  4.5,
		"flight_summary":       "Direct morning flight",
		"hotel_summary":        "Guesthouse in Ribeira",
		"itinerary_highlights": []string{"Port cellar tour", "Livraria Lello"},
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	if resp.StatusCode != http.StatusCreated {
		return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
	}
	var rec struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil || rec.ID == "" {
		return Result{Status: "FAIL", Latency: latency, Note: "no trip id in response"}
	}
	r.tripID = rec.ID
	return Result{Status: "PASS", Latency: latency, Note: "trip=" + rec.ID}
}

func (r *Runner) planCase(ctx context.Context, url string, payload any, wantCached bool) Result {
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	if resp.StatusCode != http.StatusOK {
		return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
	}
	var out struct {
		Cached     bool `json:"cached"`
		TokenUsage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"token_usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Status: "FAIL", Latency: latency, Note: err.Error()}
	}
	note := fmt.Sprintf("cached=%t tokens=%d", out.Cached, out.TokenUsage.TotalTokens)
	if out.Cached != wantCached {
		return Result{Status: "FAIL", Latency: latency, Note: note}
	}
	return Result{Status: "PASS", Latency: latency, Note: note}
}

func (r *Runner) do(ctx context.Context, method, url string, body any, okStatuses []int) Result {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = strings.NewReader(string(b))
	}
	req, _ := http.NewRequestWithContext(ctx, method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	latency := time.Since(start)

	note := fmt.Sprintf("status=%d", resp.StatusCode)
	if contains(okStatuses, resp.StatusCode) {
		return Result{Status: "PASS", Latency: latency, Note: note}
	}
	if resp.StatusCode == http.StatusNotImplemented {
		return Result{Status: "PENDING", Latency: latency, Note: note}
	}
	return Result{Status: "FAIL", Latency: latency, Note: note}
}

func httpCase(name, url string, body any, okStatuses []int) TestCase {
	return httpCaseMethod(name, http.MethodPost, url, body, okStatuses)
}

func httpCaseMethod(name, method, url string, body any, okStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			return r.do(ctx, method, url, body, okStatuses)
		},
	}
}

func manualCase(name, note string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "Manual",
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: "SKIP", Note: note}
		},
	}
}

func perfLoad(ctx context.Context, r *Runner, method, url string, payload any) Result {
	var b []byte
	if payload != nil {
		b, _ = json.Marshal(payload)
	}
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				var body io.Reader
				if b != nil {
					body = strings.NewReader(string(b))
				}
				req, _ := http.NewRequestWithContext(ctx, method, url, body)
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				mu.Lock()
				if err != nil || resp.StatusCode >= 400 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
				if err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("no requests succeeded, errors=%d", errCount)}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

// extractTables lists the tables created by the migrations in dir.
func extractTables(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	var tables []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, m := range re.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}
