// README: Trip history service: records trips, prunes to the recent window, maintains the lifetime summary.
package history

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wayfarer/internal/modules/examples"
	"wayfarer/internal/types"
)

// CountryResolver maps a destination to its country. Optional.
type CountryResolver interface {
	Country(ctx context.Context, destination string) (string, error)
}

type Service struct {
	store Store
	geo   CountryResolver
	clock types.Clock
	log   *zap.Logger

	// serializes the insert/prune/summary sequence per process
	mu sync.Mutex
}

func NewService(store Store, geo CountryResolver, clock types.Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = types.SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, geo: geo, clock: clock, log: log}
}

// RecordTrip validates and stores a completed trip, prunes the user's history to
// MaxRecentTrips and folds the trip into the lifetime summary.
func (s *Service) RecordTrip(ctx context.Context, userID string, in TripInput) (*examples.TripRecord, error) {
	userID = strings.TrimSpace(userID)
	dest := strings.TrimSpace(in.Destination)
	if userID == "" || dest == "" {
		return nil, ErrBadRequest
	}

	rating := examples.NeutralRating
	if in.Rating != nil {
		rating = *in.Rating
	}
	if rating < 0 {
		rating = 0
	}
	if rating > examples.MaxRating {
		rating = examples.MaxRating
	}

	rec := &examples.TripRecord{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Destination:        dest,
		Dates:              strings.TrimSpace(in.Dates),
		Preferences:        examples.NormalizePreferences(in.Preferences),
		SatisfactionRating: rating,
		FlightSummary:      strings.TrimSpace(in.FlightSummary),
		HotelSummary:       strings.TrimSpace(in.HotelSummary),
		Highlights:         in.Highlights,
		CreatedAt:          s.clock.Now(),
	}
	if s.geo != nil {
		country, err := s.geo.Country(ctx, dest)
		if err != nil {
			s.log.Warn("country lookup failed", zap.String("destination", dest), zap.Error(err))
		}
		rec.Country = country
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert trip: %w", err)
	}
	pruned, err := s.store.Prune(ctx, userID, MaxRecentTrips)
	if err != nil {
		return nil, fmt.Errorf("prune trips: %w", err)
	}
	if pruned > 0 {
		s.log.Debug("pruned trip history", zap.String("user_id", userID), zap.Int64("pruned", pruned))
	}

	sum, err := s.store.LoadSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	sum.add(rec)
	sum.UpdatedAt = rec.CreatedAt
	if err := s.store.SaveSummary(ctx, userID, sum); err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}
	return rec, nil
}

// LoadHistory returns the user's recent trips, newest first.
func (s *Service) LoadHistory(ctx context.Context, userID string) ([]*examples.TripRecord, error) {
	return s.store.ListRecent(ctx, userID, MaxRecentTrips)
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	recent, err := s.store.ListRecent(ctx, userID, MaxRecentTrips)
	if err != nil {
		return Profile{}, err
	}
	sum, err := s.store.LoadSummary(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if recent == nil {
		recent = []*examples.TripRecord{}
	}
	return Profile{UserID: userID, RecentTrips: recent, Summary: sum.View()}, nil
}

// RateTrip sets the satisfaction rating of one trip. Ratings outside [0,5] are rejected.
// The lifetime summary keeps the rating the trip was recorded with.
func (s *Service) RateTrip(ctx context.Context, userID, tripID string, rating float64) (*examples.TripRecord, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(tripID) == "" {
		return nil, ErrBadRequest
	}
	if rating < 0 || rating > examples.MaxRating {
		return nil, fmt.Errorf("%w: rating must be within [0,5]", ErrBadRequest)
	}
	if err := s.store.UpdateRating(ctx, userID, tripID, rating); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, userID, tripID)
}

// AddUsage persists usage increments made by example selection.
func (s *Service) AddUsage(ctx context.Context, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	return s.store.AddUsage(ctx, deltas)
}
