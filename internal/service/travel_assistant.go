// README: TravelAssistant orchestrates quota, history, example selection/caching and parallel model calls.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wayfarer/internal/ai"
	"wayfarer/internal/modules/examples"
	"wayfarer/internal/modules/history"
	"wayfarer/internal/modules/metrics"
	"wayfarer/internal/types"
)

const (
	// GuestUser owns requests that carry no user id.
	GuestUser = "guest_user"

	EndpointTravelAssistant = "/api/travel-assistant"
)

var ErrBadRequest = errors.New("bad request")

// TripHistory is the history surface the assistant needs.
type TripHistory interface {
	LoadHistory(ctx context.Context, userID string) ([]*examples.TripRecord, error)
	RecordTrip(ctx context.Context, userID string, in history.TripInput) (*examples.TripRecord, error)
	RateTrip(ctx context.Context, userID, tripID string, rating float64) (*examples.TripRecord, error)
	Profile(ctx context.Context, userID string) (history.Profile, error)
	AddUsage(ctx context.Context, deltas map[string]int64) error
}

// QuotaReserver charges one request against a user's allowance.
type QuotaReserver interface {
	Reserve(ctx context.Context, userID string) error
}

type TravelRequest struct {
	Destination string `json:"destination" binding:"required"`
	TravelDates string `json:"travel_dates" binding:"required"`
	Preferences string `json:"preferences" binding:"required"`
	UserID      string `json:"user_id"`
}

type ComponentMetrics struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	LatencyMs    int64   `json:"latency_ms"`
	CostEstimate float64 `json:"cost_estimate"`
	Fallback     bool    `json:"fallback"`
}

type TokenMetrics struct {
	Flight            ComponentMetrics `json:"flight"`
	Hotel             ComponentMetrics `json:"hotel"`
	Itinerary         ComponentMetrics `json:"itinerary"`
	TotalInputTokens  int              `json:"total_input_tokens"`
	TotalOutputTokens int              `json:"total_output_tokens"`
	TotalTokens       int              `json:"total_tokens"`
	TotalCostEstimate float64          `json:"total_cost_estimate"`
}

// ExampleInfo describes the few-shot examples one component used.
type ExampleInfo struct {
	CacheHit bool              `json:"cache_hit"`
	Selected []string          `json:"selected"`
	Ranking  *examples.Ranking `json:"ranking,omitempty"`
}

type TravelResponse struct {
	RequestID             string                    `json:"request_id"`
	UserID                string                    `json:"user_id"`
	Destination           string                    `json:"destination"`
	TravelDates           string                    `json:"travel_dates"`
	Preferences           string                    `json:"preferences"`
	FlightRecommendations string                    `json:"flight_recommendations"`
	HotelRecommendations  string                    `json:"hotel_recommendations"`
	Itinerary             string                    `json:"itinerary"`
	TokenUsage            TokenMetrics              `json:"token_usage"`
	LatencyMs             int64                     `json:"latency_ms"`
	FewShotExamples       map[Component]ExampleInfo `json:"few_shot_examples"`
	PromptTemplates       map[Component]string      `json:"prompt_templates"`
	Cached                bool                      `json:"cached"`
	CreatedAt             time.Time                 `json:"created_at"`
}

type Options struct {
	// AITimeout bounds the whole fan-out. Zero means no extra deadline.
	AITimeout        time.Duration
	ResponseCacheTTL time.Duration
}

// Deps groups the collaborators of TravelAssistant. LLM, History, Selector and Cache are required.
type Deps struct {
	LLM      ai.LLMProvider
	History  TripHistory
	Selector *examples.Selector
	Cache    *examples.Cache
	Quota    QuotaReserver
	Geo      history.CountryResolver
	Metrics  *metrics.Tracker
	Clock    types.Clock
	Log      *zap.Logger
}

// TravelAssistant answers travel requests with three parallel model calls.
type TravelAssistant struct {
	Deps
	opts      Options
	responses *gocache.Cache
}

func NewTravelAssistant(d Deps, opts Options) (*TravelAssistant, error) {
	if d.LLM == nil || d.History == nil || d.Selector == nil || d.Cache == nil {
		return nil, errors.New("travel assistant: llm, history, selector and cache are required")
	}
	if d.Clock == nil {
		d.Clock = types.SystemClock
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if opts.ResponseCacheTTL <= 0 {
		opts.ResponseCacheTTL = time.Hour
	}
	return &TravelAssistant{
		Deps:      d,
		opts:      opts,
		responses: gocache.New(opts.ResponseCacheTTL, 10*time.Minute),
	}, nil
}

type componentResult struct {
	text    string
	prompt  string
	metrics ComponentMetrics
	info    ExampleInfo
}

// Plan produces flight, hotel and itinerary recommendations for req.
func (a *TravelAssistant) Plan(ctx context.Context, req TravelRequest) (*TravelResponse, error) {
	start := time.Now()
	req.Destination = strings.TrimSpace(req.Destination)
	req.TravelDates = strings.TrimSpace(req.TravelDates)
	req.Preferences = strings.TrimSpace(req.Preferences)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		req.UserID = GuestUser
	}
	if req.Destination == "" || req.TravelDates == "" || req.Preferences == "" {
		return nil, fmt.Errorf("%w: destination, travel_dates and preferences are required", ErrBadRequest)
	}

	resp, err := a.plan(ctx, req)
	a.track(req.UserID, resp, time.Since(start), err)
	return resp, err
}

func (a *TravelAssistant) plan(ctx context.Context, req TravelRequest) (*TravelResponse, error) {
	start := time.Now()

	if a.Quota != nil {
		if err := a.Quota.Reserve(ctx, req.UserID); err != nil {
			return nil, err
		}
	}

	cacheKey := responseKey(req)
	if v, ok := a.responses.Get(cacheKey); ok {
		cached := *v.(*TravelResponse)
		cached.Cached = true
		cached.RequestID = uuid.NewString()
		cached.LatencyMs = time.Since(start).Milliseconds()
		a.Log.Debug("response cache hit", zap.String("user_id", req.UserID))
		return &cached, nil
	}

	prefs := examples.NormalizePreferences(examples.SplitPreferences(req.Preferences))
	cur := examples.CurrentRequest{Destination: req.Destination, Preferences: prefs, TravelDates: req.TravelDates}
	if a.Geo != nil {
		country, err := a.Geo.Country(ctx, req.Destination)
		if err != nil {
			a.Log.Warn("country lookup failed", zap.String("destination", req.Destination), zap.Error(err))
		}
		cur.Country = country
	}

	hist, err := a.History.LoadHistory(ctx, req.UserID)
	if err != nil {
		a.Log.Warn("history unavailable, continuing without examples", zap.String("user_id", req.UserID), zap.Error(err))
		hist = nil
	}

	exKey := examples.ScopedKey(req.UserID, examples.CacheKey(req.Destination, prefs))
	usage := newUsageTally()

	gctx := ctx
	if a.opts.AITimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, a.opts.AITimeout)
		defer cancel()
	}
	g, gctx := errgroup.WithContext(gctx)

	results := make([]componentResult, len(components))
	for i, c := range components {
		g.Go(func() error {
			r, err := a.runComponent(gctx, c, req, cur, hist, exKey, usage)
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if deltas := usage.deltas(); len(deltas) > 0 {
		if err := a.History.AddUsage(ctx, deltas); err != nil {
			a.Log.Warn("persist example usage failed", zap.Error(err))
		}
	}

	resp := &TravelResponse{
		RequestID:             uuid.NewString(),
		UserID:                req.UserID,
		Destination:           req.Destination,
		TravelDates:           req.TravelDates,
		Preferences:           req.Preferences,
		FlightRecommendations: results[0].text,
		HotelRecommendations:  results[1].text,
		Itinerary:             results[2].text,
		FewShotExamples:       make(map[Component]ExampleInfo, len(components)),
		PromptTemplates:       make(map[Component]string, len(components)),
		CreatedAt:             a.Clock.Now(),
	}
	for i, c := range components {
		resp.FewShotExamples[c] = results[i].info
		resp.PromptTemplates[c] = results[i].prompt
	}
	resp.TokenUsage = totals(results[0].metrics, results[1].metrics, results[2].metrics)
	resp.LatencyMs = time.Since(start).Milliseconds()

	stored := *resp
	a.responses.SetDefault(cacheKey, &stored)
	return resp, nil
}

func (a *TravelAssistant) runComponent(
	ctx context.Context,
	c Component,
	req TravelRequest,
	cur examples.CurrentRequest,
	hist []*examples.TripRecord,
	exKey string,
	usage *usageTally,
) (componentResult, error) {
	sel, info := a.examplesFor(cur, hist, exKey, usage)

	prompt, err := renderPrompt(c, promptData{
		Destination: req.Destination,
		TravelDates: req.TravelDates,
		Preferences: req.Preferences,
		Examples:    examples.FormatForPrompt(sel),
	})
	if err != nil {
		return componentResult{}, err
	}

	start := time.Now()
	gen, err := a.LLM.Generate(ctx, prompt)
	latency := time.Since(start).Milliseconds()

	fallback := false
	if err != nil {
		if !errors.Is(err, ai.ErrBlocked) && !errors.Is(err, ai.ErrEmptyResponse) {
			return componentResult{}, err
		}
		a.Log.Warn("model answer unusable, serving fallback", zap.String("component", string(c)), zap.Error(err))
		fallback = true
		text := fallbackText(c, req.Destination)
		if gen == nil {
			gen = &ai.Generation{}
		}
		gen.Text = text
		gen.CompletionTokens = 0
	}

	m := ComponentMetrics{InputTokens: gen.PromptTokens, OutputTokens: gen.CompletionTokens, LatencyMs: latency, Fallback: fallback}
	if m.InputTokens == 0 {
		m.InputTokens = ai.EstimateTokens(prompt)
	}
	if m.OutputTokens == 0 {
		m.OutputTokens = ai.EstimateTokens(gen.Text)
	}
	m.TotalTokens = m.InputTokens + m.OutputTokens
	m.CostEstimate = ai.EstimateCost(m.InputTokens, m.OutputTokens)

	a.Log.Info("model call",
		zap.String("component", string(c)),
		zap.Int("input_tokens", m.InputTokens),
		zap.Int("output_tokens", m.OutputTokens),
		zap.Int64("latency_ms", latency),
		zap.Bool("fallback", fallback),
		zap.Bool("examples_cache_hit", info.CacheHit),
	)
	return componentResult{text: gen.Text, prompt: prompt, metrics: m, info: info}, nil
}

// examplesFor serves the ranked cached set for key, or selects from hist and caches the picks.
func (a *TravelAssistant) examplesFor(cur examples.CurrentRequest, hist []*examples.TripRecord, key string, usage *usageTally) (examples.SelectionResult, ExampleInfo) {
	if ranking, ok := a.Cache.GetRanked(key); ok {
		sel := examples.SelectionResult{Examples: make([]examples.Scored, 0, len(ranking.Examples))}
		records := make([]*examples.TripRecord, 0, len(ranking.Examples))
		for _, r := range ranking.Examples {
			sel.Examples = append(sel.Examples, r.Scored)
			records = append(records, r.Record)
		}
		sel.NoHistory = len(sel.Examples) == 0
		if sel.HasTier(examples.TierSummary) {
			src := hist
			if len(src) == 0 {
				src = records
			}
			agg := examples.Summarize(src)
			sel.Aggregate = &agg
		}
		return sel, ExampleInfo{CacheHit: true, Selected: examples.Describe(sel), Ranking: &ranking}
	}

	sel := a.Selector.Select(cur, hist)
	for _, ex := range sel.Examples {
		usage.add(ex.Record.ID)
	}
	if !sel.NoHistory {
		a.Cache.Put(key, sel.Examples)
	}
	return sel, ExampleInfo{Selected: examples.Describe(sel)}
}

// RecordTrip stores a completed trip and drops every cached answer built from the user's old history.
func (a *TravelAssistant) RecordTrip(ctx context.Context, userID string, in history.TripInput) (*examples.TripRecord, error) {
	rec, err := a.History.RecordTrip(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	a.invalidate(rec.UserID)
	return rec, nil
}

func (a *TravelAssistant) RateTrip(ctx context.Context, userID, tripID string, rating float64) (*examples.TripRecord, error) {
	rec, err := a.History.RateTrip(ctx, userID, tripID, rating)
	if err != nil {
		return nil, err
	}
	a.invalidate(rec.UserID)
	return rec, nil
}

func (a *TravelAssistant) Profile(ctx context.Context, userID string) (history.Profile, error) {
	return a.History.Profile(ctx, userID)
}

func (a *TravelAssistant) invalidate(userID string) {
	n := a.Cache.RemoveScope(userID)
	prefix := responseScope(userID)
	for k := range a.responses.Items() {
		if strings.HasPrefix(k, prefix) {
			a.responses.Delete(k)
			n++
		}
	}
	if n > 0 {
		a.Log.Debug("invalidated cached examples", zap.String("user_id", userID), zap.Int("entries", n))
	}
}

// ClearResponses drops every cached full response.
func (a *TravelAssistant) ClearResponses() { a.responses.Flush() }

func (a *TravelAssistant) track(userID string, resp *TravelResponse, latency time.Duration, err error) {
	if a.Metrics == nil {
		return
	}
	rec := metrics.Record{
		Timestamp: a.Clock.Now(),
		Endpoint:  EndpointTravelAssistant,
		UserID:    userID,
		LatencyMs: latency.Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if resp != nil && !resp.Cached {
		rec.PromptTokens = resp.TokenUsage.TotalInputTokens
		rec.CompletionTokens = resp.TokenUsage.TotalOutputTokens
		rec.TotalTokens = resp.TokenUsage.TotalTokens
	}
	a.Metrics.Track(rec)
}

func totals(flight, hotel, itinerary ComponentMetrics) TokenMetrics {
	t := TokenMetrics{Flight: flight, Hotel: hotel, Itinerary: itinerary}
	for _, m := range []ComponentMetrics{flight, hotel, itinerary} {
		t.TotalInputTokens += m.InputTokens
		t.TotalOutputTokens += m.OutputTokens
	}
	t.TotalTokens = t.TotalInputTokens + t.TotalOutputTokens
	t.TotalCostEstimate = ai.EstimateCost(t.TotalInputTokens, t.TotalOutputTokens)
	return t
}

func responseScope(userID string) string { return userID + "/" }

// responseKey hashes the normalized request; the user prefix allows per-user invalidation.
func responseKey(req TravelRequest) string {
	payload, _ := json.Marshal(struct {
		Destination string   `json:"destination"`
		TravelDates string   `json:"travel_dates"`
		Preferences []string `json:"preferences"`
	}{
		Destination: examples.NormalizeDestination(req.Destination),
		TravelDates: strings.ToLower(req.TravelDates),
		Preferences: examples.NormalizePreferences(examples.SplitPreferences(req.Preferences)),
	})
	sum := sha256.Sum256(payload)
	return responseScope(req.UserID) + hex.EncodeToString(sum[:])
}

type usageTally struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newUsageTally() *usageTally { return &usageTally{counts: make(map[string]int64)} }

func (u *usageTally) add(id string) {
	if id == "" {
		return
	}
	u.mu.Lock()
	u.counts[id]++
	u.mu.Unlock()
}

func (u *usageTally) deltas() map[string]int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]int64, len(u.counts))
	for k, v := range u.counts {
		out[k] = v
	}
	return out
}
