// README: Trip history persistence: Postgres store (pgxpool) and an in-memory store for local runs and tests.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfarer/internal/modules/examples"
)

// Store is the persistence contract used by Service.
// Returned records are owned by the caller.
type Store interface {
	Insert(ctx context.Context, rec *examples.TripRecord) error
	ListRecent(ctx context.Context, userID string, limit int) ([]*examples.TripRecord, error)
	Prune(ctx context.Context, userID string, keep int) (int64, error)
	Get(ctx context.Context, userID, tripID string) (*examples.TripRecord, error)
	UpdateRating(ctx context.Context, userID, tripID string, rating float64) error
	AddUsage(ctx context.Context, deltas map[string]int64) error
	LoadSummary(ctx context.Context, userID string) (Summary, error)
	SaveSummary(ctx context.Context, userID string, s Summary) error
}

// PostgresStore keeps trips in trip_records and summaries in travel_profiles.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const tripColumns = `id, user_id, destination, country, dates, preferences, satisfaction_rating,
	usage_count, flight_summary, hotel_summary, highlights, created_at`

func (s *PostgresStore) Insert(ctx context.Context, rec *examples.TripRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trip_records (`+tripColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, rec.ID, rec.UserID, rec.Destination, rec.Country, rec.Dates, nonNil(rec.Preferences),
		rec.SatisfactionRating, rec.Usage(), rec.FlightSummary, rec.HotelSummary,
		nonNil(rec.Highlights), rec.CreatedAt)
	return err
}

// ListRecent returns the newest trips first.
func (s *PostgresStore) ListRecent(ctx context.Context, userID string, limit int) ([]*examples.TripRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trip_records
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*examples.TripRecord
	for rows.Next() {
		rec, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes everything but the newest keep trips of the user.
func (s *PostgresStore) Prune(ctx context.Context, userID string, keep int) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM trip_records
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM trip_records
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		)
	`, userID, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, tripID string) (*examples.TripRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM trip_records
		WHERE user_id = $1 AND id = $2
	`, userID, tripID)
	rec, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) UpdateRating(ctx context.Context, userID, tripID string, rating float64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trip_records SET satisfaction_rating = $3
		WHERE user_id = $1 AND id = $2
	`, userID, tripID, rating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddUsage applies usage deltas in one round trip.
func (s *PostgresStore) AddUsage(ctx context.Context, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for id, d := range deltas {
		batch.Queue(`UPDATE trip_records SET usage_count = usage_count + $2 WHERE id = $1`, id, d)
	}
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for range deltas {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) LoadSummary(ctx context.Context, userID string) (Summary, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT summary FROM travel_profiles WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, nil
	}
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *PostgresStore) SaveSummary(ctx context.Context, userID string, sum Summary) error {
	b, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO travel_profiles (user_id, summary, updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (user_id) DO UPDATE SET summary = EXCLUDED.summary, updated_at = EXCLUDED.updated_at
	`, userID, string(b), sum.UpdatedAt)
	return err
}

func scanTrip(row pgx.Row) (*examples.TripRecord, error) {
	var rec examples.TripRecord
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Destination, &rec.Country, &rec.Dates, &rec.Preferences,
		&rec.SatisfactionRating, &rec.UsageCount, &rec.FlightSummary, &rec.HotelSummary,
		&rec.Highlights, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.Mutex
	trips     map[string][]*examples.TripRecord
	summaries map[string]Summary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips:     make(map[string][]*examples.TripRecord),
		summaries: make(map[string]Summary),
	}
}

func (m *MemoryStore) Insert(_ context.Context, rec *examples.TripRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[rec.UserID] = append(m.trips[rec.UserID], rec.Clone())
	return nil
}

func (m *MemoryStore) sorted(userID string) []*examples.TripRecord {
	trips := append([]*examples.TripRecord(nil), m.trips[userID]...)
	sort.SliceStable(trips, func(i, j int) bool {
		if !trips[i].CreatedAt.Equal(trips[j].CreatedAt) {
			return trips[i].CreatedAt.After(trips[j].CreatedAt)
		}
		return trips[i].ID > trips[j].ID
	})
	return trips
}

func (m *MemoryStore) ListRecent(_ context.Context, userID string, limit int) ([]*examples.TripRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trips := m.sorted(userID)
	if limit >= 0 && len(trips) > limit {
		trips = trips[:limit]
	}
	out := make([]*examples.TripRecord, 0, len(trips))
	for _, t := range trips {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Prune(_ context.Context, userID string, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trips := m.sorted(userID)
	if len(trips) <= keep {
		return 0, nil
	}
	m.trips[userID] = trips[:keep]
	return int64(len(trips) - keep), nil
}

func (m *MemoryStore) Get(_ context.Context, userID, tripID string) (*examples.TripRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trips[userID] {
		if t.ID == tripID {
			return t.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateRating(_ context.Context, userID, tripID string, rating float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trips[userID] {
		if t.ID == tripID {
			t.SatisfactionRating = rating
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) AddUsage(_ context.Context, deltas map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, trips := range m.trips {
		for _, t := range trips {
			if d, ok := deltas[t.ID]; ok {
				t.UsageCount += d
			}
		}
	}
	return nil
}

func (m *MemoryStore) LoadSummary(_ context.Context, userID string) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSummary(m.summaries[userID]), nil
}

func (m *MemoryStore) SaveSummary(_ context.Context, userID string, s Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[userID] = cloneSummary(s)
	return nil
}

func cloneSummary(s Summary) Summary {
	out := s
	out.DestinationCounts = make(map[string]int, len(s.DestinationCounts))
	for k, v := range s.DestinationCounts {
		out.DestinationCounts[k] = v
	}
	out.PreferenceCounts = make(map[string]int, len(s.PreferenceCounts))
	for k, v := range s.PreferenceCounts {
		out.PreferenceCounts[k] = v
	}
	return out
}
