// README: Quota service: reserves one AI request per call against the user's monthly allowance.
package quota

import (
	"context"
	"errors"

	"wayfarer/internal/types"
)

// Service orchestrates the monthly allowance.
type Service struct {
	store     Store
	allowance int
	clock     types.Clock
}

// NewService creates a Service. An allowance of zero or less disables the check.
func NewService(store Store, allowance int, clock types.Clock) *Service {
	if clock == nil {
		clock = types.SystemClock
	}
	return &Service{store: store, allowance: allowance, clock: clock}
}

func (s *Service) Enabled() bool { return s != nil && s.allowance > 0 && s.store != nil }

// Reserve deducts one request from the user's monthly allowance.
// If the user row does not exist yet it is initialised and the request is immediately consumed.
// Returns ErrQuotaExceeded when the allowance for the current month is exhausted.
func (s *Service) Reserve(ctx context.Context, uid string) error {
	if !s.Enabled() {
		return nil
	}
	month := s.clock.Now().UTC().Format(monthLayout)
	err := s.store.Consume(ctx, uid, month, s.allowance)
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.store.Ensure(ctx, uid, month, s.allowance); initErr != nil {
		return initErr
	}
	return s.store.Consume(ctx, uid, month, s.allowance)
}

// Remaining reports how many requests the user has left this month; -1 when unlimited.
func (s *Service) Remaining(ctx context.Context, uid string) (int, error) {
	if !s.Enabled() {
		return -1, nil
	}
	return s.store.Remaining(ctx, uid, s.clock.Now().UTC().Format(monthLayout), s.allowance)
}
