// README: Request metrics model: tracked records and the dashboard views built from them.
package metrics

import "time"

const (
	// MaxRecords bounds the raw request log; aggregates keep counting past it.
	MaxRecords = 1000
	topUsers   = 10
	hourLayout = "2006-01-02_15"
)

// Record is one tracked API call.
type Record struct {
	Timestamp        time.Time `json:"timestamp"`
	Endpoint         string    `json:"endpoint"`
	UserID           string    `json:"user_id"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        int64     `json:"latency_ms"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
}

type bucket struct {
	requests  int
	tokens    int
	latencyMs int64
	errors    int
}

func (b *bucket) add(r Record) {
	b.requests++
	b.tokens += r.TotalTokens
	b.latencyMs += r.LatencyMs
	if !r.Success {
		b.errors++
	}
}

func (b bucket) avgLatency() float64 {
	if b.requests == 0 {
		return 0
	}
	return float64(b.latencyMs) / float64(b.requests)
}

type Summary struct {
	TotalRequests       int     `json:"total_requests"`
	SuccessRate         float64 `json:"success_rate"`
	TotalTokens         int     `json:"total_tokens"`
	AvgTokensPerRequest float64 `json:"avg_tokens_per_request"`
	AvgLatencyMs        float64 `json:"avg_latency_ms"`
	ErrorCount          int     `json:"error_count"`
	PeriodHours         int     `json:"time_period_hours"`
}

type UserStats struct {
	UserID        string  `json:"user_id"`
	TotalRequests int     `json:"total_requests"`
	TotalTokens   int     `json:"total_tokens"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

type HourStats struct {
	Hour         string  `json:"hour"`
	Requests     int     `json:"requests"`
	Tokens       int     `json:"tokens"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

type UserUsage struct {
	UserID   string `json:"user_id"`
	Requests int    `json:"requests"`
	Tokens   int    `json:"tokens"`
}

type EndpointStats struct {
	Endpoint     string  `json:"endpoint"`
	Requests     int     `json:"requests"`
	Tokens       int     `json:"tokens"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	ErrorRate    float64 `json:"error_rate"`
}

type Overall struct {
	TotalRequests int     `json:"total_requests"`
	TotalTokens   int     `json:"total_tokens"`
	TotalErrors   int     `json:"total_errors"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

type Dashboard struct {
	Summary24h      Summary         `json:"summary_24h"`
	Summary1h       Summary         `json:"summary_1h"`
	HourlyBreakdown []HourStats     `json:"hourly_breakdown"`
	TopUsers        []UserUsage     `json:"top_users"`
	EndpointStats   []EndpointStats `json:"endpoint_stats"`
	Overall         Overall         `json:"overall"`
}
